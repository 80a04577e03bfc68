package model_test

import (
	"testing"

	"github.com/okian/arcadeboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParticipant(t *testing.T) {
	Convey("Given participants with and without a profile link", t, func() {
		with := model.Participant{Name: "Ada", ProfileURL: "https://example.com/ada"}
		without := model.Participant{Name: "Bob"}

		Convey("Then HasProfile should reflect the link", func() {
			So(with.HasProfile(), ShouldBeTrue)
			So(without.HasProfile(), ShouldBeFalse)
		})
	})

	Convey("Given a raw record", t, func() {
		rec := model.RawRecord{"User Name": "Ada"}

		Convey("Then missing columns read as empty strings", func() {
			So(rec["User Name"], ShouldEqual, "Ada")
			So(rec["Missing"], ShouldEqual, "")
		})
	})
}
