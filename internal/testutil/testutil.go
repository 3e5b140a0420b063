// Package testutil builds in-memory GTFS fixtures for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// BuildZip assembles a zip archive from file name to content.
func BuildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("creating %s in zip: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("writing %s in zip: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// DemoGTFS is a small desert-town feed in the America/Los_Angeles timezone,
// running every day of 2018 and 2019.
func DemoGTFS(t *testing.T) []byte {
	t.Helper()
	return BuildZip(t, map[string]string{
		"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
DTA,Demo Transit Authority,http://google.com,America/Los_Angeles
`,
		"stops.txt": `stop_id,stop_name,stop_lat,stop_lon
STAGECOACH,Stagecoach Hotel & Casino (Demo),36.915682,-116.751677
NANAA,North Ave / N A Ave (Demo),36.914944,-116.761472
NADAV,North Ave / D Ave N (Demo),36.914893,-116.76821
DADAN,Doing Ave / D Ave N (Demo),36.909489,-116.768242
EMSI,E Main St / S Irving St (Demo),36.905697,-116.76218
BEATTY_AIRPORT,Nye County Airport (Demo),36.868446,-116.784582
BULLFROG,Bullfrog (Demo),36.88108,-116.81797
AMV,Amargosa Valley (Demo),36.641496,-116.40094
`,
		"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type
AB,DTA,AB,Airport - Bullfrog,3
STBA,DTA,STBA,Stagecoach - Airport Shuttle,3
CITY,DTA,CITY,City,3
`,
		"trips.txt": `route_id,service_id,trip_id,direction_id
AB,FULLW,AB1,0
STBA,FULLW,STBA,0
CITY,FULLW,CITY1,0
CITY,FULLW,CITY2,1
`,
		"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence
STBA,06:00:00,06:00:00,STAGECOACH,1
STBA,06:20:00,06:20:00,BEATTY_AIRPORT,2
CITY1,06:00:00,06:00:00,STAGECOACH,1
CITY1,06:05:00,06:07:00,NANAA,2
CITY1,06:12:00,06:14:00,NADAV,3
CITY1,06:19:00,06:21:00,DADAN,4
CITY1,06:26:00,06:28:00,EMSI,5
CITY2,06:28:00,06:30:00,EMSI,1
CITY2,06:35:00,06:37:00,DADAN,2
CITY2,06:42:00,06:44:00,NADAV,3
CITY2,06:49:00,06:51:00,NANAA,4
CITY2,06:56:00,06:58:00,STAGECOACH,5
AB1,08:00:00,08:00:00,BEATTY_AIRPORT,1
AB1,08:10:00,08:15:00,BULLFROG,2
`,
		"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
FULLW,1,1,1,1,1,1,1,20180101,20191231
`,
	})
}

// WriteDemoGTFS writes the demo feed to a temp file and returns its path.
func WriteDemoGTFS(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gtfs.zip")
	if err := os.WriteFile(path, DemoGTFS(t), 0o644); err != nil {
		t.Fatalf("writing demo gtfs: %v", err)
	}
	return path
}

// AltMatchGTFS is a fixture for alternative trip matching: one line in both
// directions, running only on 2019-02-06, with two identical backward trips
// to exercise the ambiguous case.
func AltMatchGTFS(t *testing.T) []byte {
	t.Helper()
	return BuildZip(t, map[string]string{
		"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
OP,Operator,http://example.com,UTC
`,
		"stops.txt": `stop_id,stop_name,stop_lat,stop_lon
A,Stop A,45.0,0.0
B,Stop B,45.1,0.1
C,Stop C,45.2,0.2
D,Stop D,45.3,0.3
`,
		"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type
l1,OP,l1,ligne 1,3
`,
		"trips.txt": `route_id,service_id,trip_id,direction_id
l1,c,vj1,0
l1,c,vj2,0
l1,c,vjr1,1
l1,c,vjr2,1
`,
		"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence
vj1,10:00:00,10:01:00,A,1
vj1,11:00:00,11:01:00,B,2
vj1,12:00:00,12:01:00,C,3
vj2,11:30:00,11:31:00,B,1
vj2,15:00:00,15:01:00,D,2
vjr1,10:00:00,10:01:00,C,1
vjr1,11:00:00,11:01:00,B,2
vjr1,12:00:00,12:01:00,A,3
vjr2,10:00:00,10:01:00,C,1
vjr2,11:00:00,11:01:00,B,2
vjr2,12:00:00,12:01:00,A,3
`,
		"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
c,1,1,1,1,1,1,1,20190206,20190206
`,
	})
}
