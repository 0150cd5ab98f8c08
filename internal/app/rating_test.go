package service_test

import (
	"errors"
	"testing"
	"time"

	service "github.com/okian/smartart/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDecodeRating(t *testing.T) {
	Convey("Given rating request bodies", t, func() {
		Convey("When the body is complete", func() {
			in, err := service.DecodeRating([]byte(`{"user_id":"alice","rating":5,"visual_time":"2024-05-01T12:00:00.250"}`))

			Convey("Then every field is decoded", func() {
				So(err, ShouldBeNil)
				So(in.UserID, ShouldEqual, "alice")
				So(in.Rating, ShouldEqual, 5)
				So(in.VisualTime.Equal(time.Date(2024, 5, 1, 12, 0, 0, 250e6, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When user_id is numeric and rating is a numeric string", func() {
			in, err := service.DecodeRating([]byte(`{"user_id":123456789,"rating":"0","visual_time":"2024-05-01T12:00:00Z"}`))

			Convey("Then both are normalized", func() {
				So(err, ShouldBeNil)
				So(in.UserID, ShouldEqual, "123456789")
				So(in.Rating, ShouldEqual, 0)
			})
		})

		Convey("When the body is invalid", func() {
			for _, body := range []string{
				``,
				`null`,
				`[]`,
				`{"rating":3,"visual_time":"2024-05-01T12:00:00Z"}`,
				`{"user_id":"a","visual_time":"2024-05-01T12:00:00Z"}`,
				`{"user_id":"a","rating":3}`,
				`{"user_id":"","rating":3,"visual_time":"2024-05-01T12:00:00Z"}`,
				`{"user_id":true,"rating":3,"visual_time":"2024-05-01T12:00:00Z"}`,
				`{"user_id":"a","rating":6,"visual_time":"2024-05-01T12:00:00Z"}`,
				`{"user_id":"a","rating":-1,"visual_time":"2024-05-01T12:00:00Z"}`,
				`{"user_id":"a","rating":2.5,"visual_time":"2024-05-01T12:00:00Z"}`,
				`{"user_id":"a","rating":3,"visual_time":"yesterday"}`,
				`{"user_id":"a","rating":3,"visual_time":17}`,
			} {
				_, err := service.DecodeRating([]byte(body))
				So(errors.Is(err, service.ErrInvalidRating), ShouldBeTrue)
			}
		})
	})
}
