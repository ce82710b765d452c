package echoapi

import (
	"net/http"
	"testing"

	"github.com/sparshv/projportal/core/load"
	"github.com/sparshv/projportal/core/user"
	testutil "github.com/sparshv/projportal/tests"
)

func Test_loadApi(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.edu", "", []string{user.RoleAdmin}, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof Kumar", "pkumar", "pkumar@test.edu", "", []string{user.RoleFaculty}, true)
	other := testutil.CreateUser(t, usrRepo, "Prof Singh", "psingh", "psingh@test.edu", "", []string{user.RoleFaculty}, true)
	hero := testutil.CreateStudent(t, usrRepo, "Hero", "hero01", "hero@test.edu", 41, 7, 2023)

	fl1 := createLoadRow(t, prof, 2026, 7)
	fl2 := createLoadRow(t, other, 2026, 7)

	heroToken := getToken(t, hero)
	bump := load.BumpLoad{FacultyID: prof.ID, Year: 2026, Semester: 7, Value: 2}
	bumped := fl1
	bumped.TotalGroups = 1
	bumped.TotalStudents = 2

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/faculty-load", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "query all", method: http.MethodGet, path: "/v1/faculty-load", token: heroToken,
			wantCode: http.StatusOK, wantData: marchallList(t, fl1, fl2),
		},
		{
			name: "query one faculty", method: http.MethodGet, path: "/v1/faculty-load?facultyId=" + prof.ID, token: heroToken,
			wantCode: http.StatusOK, wantData: marchallList(t, fl1),
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/v1/faculty-load/" + prof.ID + "?year=2026&semester=7", token: heroToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, fl1),
		},
		{
			name: "retrieve (missing row)", method: http.MethodGet, path: "/v1/faculty-load/" + prof.ID + "?year=2025&semester=7", token: heroToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "bump needs admin", method: http.MethodPut, path: "/v1/faculty-load", token: heroToken,
			body: marchallObj(t, bump), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "manual bump", method: http.MethodPut, path: "/v1/faculty-load", token: getToken(t, admin),
			body: marchallObj(t, bump), wantCode: http.StatusOK, wantData: marchallObj(t, bumped),
		},
		{
			name: "bump unknown row", method: http.MethodPut, path: "/v1/faculty-load", token: getToken(t, admin),
			body:     marchallObj(t, load.BumpLoad{FacultyID: "lol", Year: 2026, Semester: 7, Value: 1}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
