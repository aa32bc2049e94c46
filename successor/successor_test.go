package successor

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRecordAndLookup(t *testing.T) {
	Convey("Given an empty cache", t, func() {
		c := NewCache()
		m := []string{"root/pass", "root/hold"}

		Convey("Recording a fresh (M, j) observation makes it lookupable", func() {
			err := c.Record(m, 2, []string{"root/lead", "root/support"})
			So(err, ShouldBeNil)

			got, ok := c.Lookup(m, 2)
			So(ok, ShouldBeTrue)
			So(got, ShouldResemble, []string{"root/lead", "root/support"})
			So(c.Len(), ShouldEqual, 1)
		})

		Convey("Recording the same observation twice is idempotent", func() {
			So(c.Record(m, 2, []string{"root/lead", "root/support"}), ShouldBeNil)
			So(c.Record(m, 2, []string{"root/lead", "root/support"}), ShouldBeNil)
			So(c.Len(), ShouldEqual, 1)
		})

		Convey("A conflicting successor for the same (M, j) is a fatal integrity violation", func() {
			So(c.Record(m, 2, []string{"root/lead", "root/support"}), ShouldBeNil)
			err := c.Record(m, 2, []string{"root/lead", "root/other"})
			So(err, ShouldNotBeNil)
			var violation *ErrIntegrityViolation
			So(err, ShouldHaveSameTypeAs, violation)
		})

		Convey("An unrecorded (M, j) misses", func() {
			_, ok := c.Lookup(m, 9)
			So(ok, ShouldBeFalse)
		})
	})
}
