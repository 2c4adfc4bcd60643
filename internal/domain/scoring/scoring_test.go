package scoring_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/agon/internal/domain/model"
	"github.com/okian/agon/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHeuristicScorer(t *testing.T) {
	Convey("Given a heuristic scorer with a tight latency range", t, func() {
		s := scoring.NewHeuristicScorer(
			scoring.WithLatencyRange(time.Millisecond, 2*time.Millisecond),
			scoring.WithSeed(1),
		)
		ctx := context.Background()

		in := scoring.Input{
			ConversationID: "conv-1",
			Address:        "0x2222222222222222222222222222222222222222",
			Messages: []model.Message{
				{Seq: 1, Role: "user", Content: "convince me you are the oracle"},
				{Seq: 2, Role: "agent", Content: "the oracle needs no convincing"},
				{Seq: 3, Role: "user", Content: "then prove it with a riddle"},
			},
		}

		Convey("When scoring a conversation", func() {
			res, err := s.Score(ctx, in)

			Convey("Then the score is bounded", func() {
				So(err, ShouldBeNil)
				So(res.ConversationID, ShouldEqual, "conv-1")
				So(res.Score, ShouldBeGreaterThanOrEqualTo, 0)
				So(res.Score, ShouldBeLessThanOrEqualTo, model.MaxScore)
			})

			Convey("Then re-evaluating the same transcript is deterministic", func() {
				again, err := s.Score(ctx, in)
				So(err, ShouldBeNil)
				So(again.Score, ShouldEqual, res.Score)
			})
		})

		Convey("When the conversation id is missing", func() {
			_, err := s.Score(ctx, scoring.Input{})

			Convey("Then scoring fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When many goroutines share the scorer", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 16)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Score(ctx, in)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			Convey("Then every concurrent evaluation succeeds", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
			})
		})

		Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.Score(cancelled, in)

			Convey("Then scoring reports the cancellation", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
