package app

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/dbwarden/internal/infrastructure/logger"
)

const clientSecret = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"shh",
"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",
"redirect_uris":["http://localhost:8085/auth/google/callback"]}}`

func TestDriveAuthServer(t *testing.T) {
	Convey("Given a Drive consent server", t, func() {
		path := filepath.Join(t.TempDir(), "client.json")
		So(os.WriteFile(path, []byte(clientSecret), 0o600), ShouldBeNil)

		srv, err := NewDriveAuthServer(logger.Nop(), path)
		So(err, ShouldBeNil)
		h := srv.Handler()

		Convey("The start page redirects to Google with offline access", func() {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/drive", nil))

			So(rec.Code, ShouldEqual, http.StatusTemporaryRedirect)
			loc, err := url.Parse(rec.Header().Get("Location"))
			So(err, ShouldBeNil)
			So(loc.Host, ShouldEqual, "accounts.google.com")
			So(loc.Query().Get("access_type"), ShouldEqual, "offline")
			So(loc.Query().Get("state"), ShouldEqual, srv.state)
		})

		Convey("A callback with a foreign state is rejected", func() {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=other&code=x", nil))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A callback without a code is rejected", func() {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state="+srv.state, nil))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("A missing client secret is an error", t, func() {
		_, err := NewDriveAuthServer(logger.Nop(), filepath.Join(t.TempDir(), "nope.json"))
		So(err, ShouldNotBeNil)
	})
}
