package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hitpoints/hitpoints-service/internal/core/domain"
	"github.com/hitpoints/hitpoints-service/internal/core/ports"
	"github.com/hitpoints/hitpoints-service/internal/core/service"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/db/memory"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/notify"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/queue"
)

// failingSaveRepo wraps the memory store and refuses every write.
type failingSaveRepo struct {
	*memory.CharacterRepository
}

func (failingSaveRepo) Save(context.Context, string, domain.HealthState) error {
	return errors.New("disk full")
}

func newTestRouter(t *testing.T, repo ports.CharacterRepository) (*notify.Bus, http.Handler) {
	t.Helper()
	log := zerolog.Nop()
	bus := notify.NewBus(8, log)
	svc := service.NewCharacterService(repo, bus, queue.NewDispatcher(log), nil, log)
	e := NewRouter(Deps{Service: svc, Feed: bus, CORSOrigins: []string{"*"}, Log: log})
	return bus, e
}

func seededRepo(t *testing.T) *memory.CharacterRepository {
	t.Helper()
	repo := memory.NewCharacterRepository()
	err := repo.Insert(context.Background(), &domain.Character{
		ID: "briv", Name: "Briv", HitPoints: 25, CurrentHitPoints: 25,
		Defenses: []domain.Defense{{Type: domain.DamageSlashing, Defense: domain.DefenseResistance}},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return repo
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_DamageFlowNotifiesOnce(t *testing.T) {
	bus, h := newTestRouter(t, seededRepo(t))
	sub := bus.Subscribe()
	defer sub.Close()

	rec := do(h, http.MethodPost, "/characters/damage", `{"characterId":"briv","damageType":"slashing","damage":9}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res struct {
		CurrentHitPoints int `json:"currentHitPoints"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.CurrentHitPoints != 20 {
		t.Errorf("current = %d, want 20 (resistance halves 9 to 5)", res.CurrentHitPoints)
	}

	select {
	case id := <-sub.Events():
		if id != "briv" {
			t.Errorf("notified %q", id)
		}
	default:
		t.Fatal("expected a notification")
	}
	select {
	case id := <-sub.Events():
		t.Fatalf("unexpected second notification %q", id)
	default:
	}

	rec = do(h, http.MethodGet, "/characters/briv", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"currentHitPoints":20`) {
		t.Errorf("re-fetch: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		repo       func(t *testing.T) ports.CharacterRepository
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"unknown character get", func(t *testing.T) ports.CharacterRepository { return seededRepo(t) },
			http.MethodGet, "/characters/nobody", "", http.StatusNotFound},
		{"unknown character heal", func(t *testing.T) ports.CharacterRepository { return seededRepo(t) },
			http.MethodPost, "/characters/heal", `{"characterId":"nobody","amount":3}`, http.StatusNotFound},
		{"invalid amount", func(t *testing.T) ports.CharacterRepository { return seededRepo(t) },
			http.MethodPost, "/characters/heal", `{"characterId":"briv","amount":-3}`, http.StatusUnprocessableEntity},
		{"malformed body", func(t *testing.T) ports.CharacterRepository { return seededRepo(t) },
			http.MethodPost, "/characters/temporary-hit-points", `{`, http.StatusBadRequest},
		{"store failure", func(t *testing.T) ports.CharacterRepository { return failingSaveRepo{seededRepo(t)} },
			http.MethodPost, "/characters/heal", `{"characterId":"briv","amount":3}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newTestRouter(t, tt.repo(t))
			rec := do(h, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"error"`) {
				t.Errorf("expected error envelope, got %s", rec.Body.String())
			}
		})
	}
}

func TestRouter_LargestAmountsStayWithinBounds(t *testing.T) {
	_, h := newTestRouter(t, seededRepo(t))

	type pools struct {
		CurrentHitPoints   int `json:"currentHitPoints"`
		TemporaryHitPoints int `json:"temporaryHitPoints"`
	}
	post := func(path, body string) pools {
		t.Helper()
		rec := do(h, http.MethodPost, path, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
		var p pools
		if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return p
	}

	post("/characters/temporary-hit-points", `{"characterId":"briv","amount":5}`)
	got := post("/characters/damage", `{"characterId":"briv","damageType":"slashing","damage":9223372036854775807}`)
	if got.CurrentHitPoints != 0 || got.TemporaryHitPoints != 0 {
		t.Fatalf("after resisted damage: %+v, want current=0 temp=0", got)
	}

	got = post("/characters/heal", `{"characterId":"briv","amount":9223372036854775807}`)
	if got.CurrentHitPoints != 25 {
		t.Fatalf("after heal: current = %d, want 25", got.CurrentHitPoints)
	}
}

func TestRouter_StoreFailureDoesNotNotify(t *testing.T) {
	bus, h := newTestRouter(t, failingSaveRepo{seededRepo(t)})
	sub := bus.Subscribe()
	defer sub.Close()

	do(h, http.MethodPost, "/characters/damage", `{"characterId":"briv","damageType":"fire","damage":3}`)

	select {
	case id := <-sub.Events():
		t.Fatalf("unexpected notification for %q", id)
	default:
	}
}

func TestRouter_ProbesAndMetrics(t *testing.T) {
	_, h := newTestRouter(t, seededRepo(t))

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		if rec := do(h, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestRouter_ListOrdered(t *testing.T) {
	repo := seededRepo(t)
	_ = repo.Insert(context.Background(), &domain.Character{ID: "aria", Name: "Aria", HitPoints: 10, CurrentHitPoints: 10})
	_, h := newTestRouter(t, repo)

	rec := do(h, http.MethodGet, "/characters", "")
	var got []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != "aria" || got[1].ID != "briv" {
		t.Errorf("unexpected roster %+v", got)
	}
}
