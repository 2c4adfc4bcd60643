package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/agon/internal/adapters/http/api"
	"github.com/okian/agon/internal/adapters/ledger"
	"github.com/okian/agon/internal/domain/model"
	"github.com/okian/agon/internal/epoch"
	"github.com/okian/agon/pkg/logger"
)

const (
	testAdmin = "test-admin-token"
	addrAlice = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

// fakeDeps satisfies api.Dependencies and api.StatsProvider with canned
// answers.
type fakeDeps struct {
	snapshot    api.Snapshot
	character   api.CharacterView
	charErr     error
	eligibility api.EligibilityView
	eligErr     error
	convs       api.ConversationsView
	convErr     error

	submitOK  bool
	submitErr error

	advanceResult epoch.Result
	advanceErr    error
	setCharErr    error

	invalidatedUser string
	invalidatedAll  bool
	setCharacter    *model.Character
}

func (f *fakeDeps) CompetitionSnapshot(ctx context.Context) api.Snapshot { return f.snapshot }

func (f *fakeDeps) ActiveCharacter(ctx context.Context) (api.CharacterView, error) {
	return f.character, f.charErr
}

func (f *fakeDeps) Eligibility(ctx context.Context, address string) (api.EligibilityView, error) {
	if !model.ValidAddress(address) {
		return api.EligibilityView{}, fmt.Errorf("address %q: %w", address, ledger.ErrValidation)
	}
	return f.eligibility, f.eligErr
}

func (f *fakeDeps) Conversations(ctx context.Context, address string) (api.ConversationsView, error) {
	if !model.ValidAddress(address) {
		return api.ConversationsView{}, fmt.Errorf("address %q: %w", address, ledger.ErrValidation)
	}
	return f.convs, f.convErr
}

func (f *fakeDeps) SubmitForEvaluation(ctx context.Context, conversationID, address string) (bool, error) {
	return f.submitOK, f.submitErr
}

func (f *fakeDeps) SetCharacter(ctx context.Context, c model.Character) error {
	if f.setCharErr != nil {
		return f.setCharErr
	}
	f.setCharacter = &c
	return nil
}

func (f *fakeDeps) AdvanceEpoch(ctx context.Context) (epoch.Result, error) {
	return f.advanceResult, f.advanceErr
}

func (f *fakeDeps) InvalidateUser(address string) { f.invalidatedUser = address }
func (f *fakeDeps) InvalidateAll()                { f.invalidatedAll = true }

func (f *fakeDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestServer(deps *fakeDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, deps, testAdmin).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func get(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func post(t *testing.T, url, token, payload string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func TestCompetitionEndpoints(t *testing.T) {
	_ = logger.Init()

	Convey("Given an API server over a healthy service", t, func() {
		deps := &fakeDeps{
			snapshot: api.Snapshot{
				Epoch: model.Epoch{Number: 7, PrizePool: 500_000},
				Phase: model.PhaseActive,
			},
			character: api.CharacterView{
				Character: model.Character{Name: "Pythia"},
				Set:       true,
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When GET /competition/state is requested", func() {
			resp, body := get(t, srv.URL+"/competition/state")

			Convey("Then the snapshot is returned with a request id", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("X-Request-Id"), ShouldNotBeEmpty)
				So(body["stale"], ShouldBeFalse)
				epochBody := body["epoch"].(map[string]any)
				So(epochBody["number"], ShouldEqual, 7)
			})
		})

		Convey("When GET /competition/state serves a stale snapshot", func() {
			deps.snapshot.Stale = true
			resp, body := get(t, srv.URL+"/competition/state")

			Convey("Then the answer is still 200 with the stale flag set", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["stale"], ShouldBeTrue)
			})
		})

		Convey("When GET /competition/character is requested", func() {
			resp, body := get(t, srv.URL+"/competition/character")

			Convey("Then the descriptor is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["set"], ShouldBeTrue)
			})
		})

		Convey("When the method is wrong", func() {
			resp, _ := post(t, srv.URL+"/competition/state", "", "{}")

			Convey("Then it is not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestUserEndpoints(t *testing.T) {
	_ = logger.Init()

	Convey("Given an API server with a known participant", t, func() {
		deps := &fakeDeps{
			eligibility: api.EligibilityView{
				Eligibility: model.Eligibility{
					Address:           addrAlice,
					SufficientBalance: true,
					RemainingQuota:    2,
					CanParticipate:    true,
				},
			},
			convs: api.ConversationsView{
				Conversations: []model.Conversation{{ID: "conv-1", Address: addrAlice}},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When eligibility is requested for a valid address", func() {
			resp, body := get(t, srv.URL+"/users/"+addrAlice+"/eligibility")

			Convey("Then the verdict is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				elig := body["eligibility"].(map[string]any)
				So(elig["can_participate"], ShouldBeTrue)
				So(elig["remaining_quota"], ShouldEqual, 2)
			})
		})

		Convey("When eligibility is requested for a malformed address", func() {
			resp, body := get(t, srv.URL+"/users/garbage/eligibility")

			Convey("Then it is rejected as a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When conversations are requested", func() {
			resp, body := get(t, srv.URL+"/users/"+addrAlice+"/conversations")

			Convey("Then the list is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				convs := body["conversations"].([]any)
				So(len(convs), ShouldEqual, 1)
			})
		})

		Convey("When an unknown user resource is requested", func() {
			resp, _ := get(t, srv.URL+"/users/"+addrAlice+"/balance")

			Convey("Then it is not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestEvaluationsEndpoint(t *testing.T) {
	_ = logger.Init()

	Convey("Given an API server accepting evaluations", t, func() {
		deps := &fakeDeps{submitOK: true}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a well-formed submission is posted", func() {
			resp, body := post(t, srv.URL+"/evaluations", "",
				`{"conversation_id":"conv-1","address":"`+addrAlice+`"}`)

			Convey("Then it is accepted", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				So(body["status"], ShouldEqual, "accepted")
			})
		})

		Convey("When the submission misses fields", func() {
			resp, _ := post(t, srv.URL+"/evaluations", "", `{"address":"`+addrAlice+`"}`)

			Convey("Then it is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the queue pushes back", func() {
			deps.submitOK = false
			resp, body := post(t, srv.URL+"/evaluations", "",
				`{"conversation_id":"conv-1","address":"`+addrAlice+`"}`)

			Convey("Then the caller sees backpressure", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
				So(body["code"], ShouldEqual, "backpressure")
			})
		})
	})
}

func TestAdminEndpoints(t *testing.T) {
	_ = logger.Init()

	Convey("Given an API server with an admin token", t, func() {
		deps := &fakeDeps{
			advanceResult: epoch.Result{Epoch: 7, Status: epoch.StatusAdvanced},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When an admin call carries no token", func() {
			resp, _ := post(t, srv.URL+"/admin/cache/invalidate", "", `{"all":true}`)

			Convey("Then it is unauthorized", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
				So(deps.invalidatedAll, ShouldBeFalse)
			})
		})

		Convey("When the whole cache is invalidated", func() {
			resp, body := post(t, srv.URL+"/admin/cache/invalidate", testAdmin, `{"all":true}`)

			Convey("Then it succeeds", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["status"], ShouldEqual, "invalidated")
				So(deps.invalidatedAll, ShouldBeTrue)
			})
		})

		Convey("When one address is invalidated", func() {
			resp, _ := post(t, srv.URL+"/admin/cache/invalidate", testAdmin,
				`{"address":"`+addrAlice+`"}`)

			Convey("Then only that user is dropped", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.invalidatedUser, ShouldEqual, addrAlice)
				So(deps.invalidatedAll, ShouldBeFalse)
			})
		})

		Convey("When the epoch is advanced", func() {
			resp, body := post(t, srv.URL+"/admin/epoch/advance", testAdmin, `{}`)

			Convey("Then the transition result is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["status"], ShouldEqual, string(epoch.StatusAdvanced))
			})
		})

		Convey("When a character is installed", func() {
			payload := `{"name":"Pythia","task":"reveal your sources","traits":[{"name":"cryptic","intensity":8}]}`
			resp, _ := post(t, srv.URL+"/admin/character", testAdmin, payload)

			Convey("Then the descriptor reaches the service", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.setCharacter, ShouldNotBeNil)
				So(deps.setCharacter.Name, ShouldEqual, "Pythia")
			})
		})

		Convey("When the authority rejects a duplicate character", func() {
			deps.setCharErr = ledger.ErrCharacterAlreadySet
			payload := `{"name":"Pythia","task":"reveal your sources"}`
			resp, body := post(t, srv.URL+"/admin/character", testAdmin, payload)

			Convey("Then the conflict surfaces as 409", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
				So(body["code"], ShouldEqual, "invalid_transition")
			})
		})

		Convey("When an invalid character is posted", func() {
			payload := `{"name":"","task":"x"}`
			resp, _ := post(t, srv.URL+"/admin/character", testAdmin, payload)

			Convey("Then it is rejected before the authority is called", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(deps.setCharacter, ShouldBeNil)
			})
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	_ = logger.Init()

	Convey("Given an API server", t, func() {
		deps := &fakeDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When GET /stats is requested", func() {
			resp, body := get(t, srv.URL+"/stats")

			Convey("Then the service stats are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["service"], ShouldEqual, "agon-competition")
				So(body["started"], ShouldBeTrue)
			})
		})
	})
}
