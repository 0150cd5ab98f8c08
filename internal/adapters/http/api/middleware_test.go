package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped with metrics", t, func() {
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.WriteHeader(http.StatusOK)
		}, "ping")

		Convey("Then the first written status reaches the client", func() {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
			So(rec.Code, ShouldEqual, http.StatusConflict)
		})
	})

	Convey("Given error statuses", t, func() {
		Convey("Then each maps to a stable class", func() {
			So(errorClass(http.StatusServiceUnavailable), ShouldEqual, "unavailable")
			So(errorClass(http.StatusInternalServerError), ShouldEqual, "server_error")
			So(errorClass(http.StatusNotFound), ShouldEqual, "not_found")
			So(errorClass(http.StatusMethodNotAllowed), ShouldEqual, "method_not_allowed")
			So(errorClass(http.StatusConflict), ShouldEqual, "conflict")
			So(errorClass(http.StatusBadRequest), ShouldEqual, "client_error")
		})
	})
}
