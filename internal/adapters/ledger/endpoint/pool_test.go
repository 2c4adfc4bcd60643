package endpoint_test

import (
	"sync"
	"testing"

	"github.com/okian/agon/internal/adapters/ledger/endpoint"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPool(t *testing.T) {
	Convey("Given a pool of three endpoints", t, func() {
		eps := []string{"http://a:8545", "http://b:8545", "http://c:8545"}
		p, err := endpoint.New(eps)
		So(err, ShouldBeNil)

		Convey("When reading the current endpoint", func() {
			Convey("Then it should be the first in order", func() {
				So(p.Current(), ShouldEqual, "http://a:8545")
				So(p.Size(), ShouldEqual, 3)
			})
		})

		Convey("When rotating through the ring", func() {
			Convey("Then rotation advances modulo pool size", func() {
				So(p.Rotate(), ShouldEqual, "http://b:8545")
				So(p.Rotate(), ShouldEqual, "http://c:8545")
				So(p.Rotate(), ShouldEqual, "http://a:8545")
				So(p.Current(), ShouldEqual, "http://a:8545")
			})
		})

		Convey("When rotating concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					p.Rotate()
				}()
			}
			wg.Wait()

			Convey("Then the cursor still selects a ring member", func() {
				So(eps, ShouldContain, p.Current())
			})
		})
	})

	Convey("Given an empty endpoint list", t, func() {
		_, err := endpoint.New(nil)

		Convey("Then construction fails", func() {
			So(err, ShouldEqual, endpoint.ErrEmptyPool)
		})
	})
}
