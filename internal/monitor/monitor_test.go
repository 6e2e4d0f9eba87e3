package monitor

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"

	"routewatch/internal/alert"
	"routewatch/internal/config"
	"routewatch/internal/model"
)

type fakeProvider struct {
	info model.RouteInfo
	err  error
}

func (f *fakeProvider) Lookup(ctx context.Context, prefix string) (model.RouteInfo, error) {
	return f.info, f.err
}

type fakeStore struct {
	prior   model.MonitorState
	saved   []model.Status
	saveErr error
}

func (f *fakeStore) Load() model.MonitorState { return f.prior }

func (f *fakeStore) Save(status model.Status) error {
	f.saved = append(f.saved, status)
	return f.saveErr
}

type fakeDispatcher struct {
	kinds    []alert.Kind
	contexts []alert.Context
	err      error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, kind alert.Kind, actx alert.Context) error {
	f.kinds = append(f.kinds, kind)
	f.contexts = append(f.contexts, actx)
	return f.err
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Route.Prefix = "203.0.113.0/24"
	cfg.Route.ExpectedNextHop = "192.0.2.1"
	cfg.Route.FlapAgeThresholdSeconds = 60
	return cfg
}

func run(t *testing.T, prior model.Status, provider *fakeProvider) (*fakeStore, *fakeDispatcher, Summary) {
	t.Helper()
	store := &fakeStore{prior: model.MonitorState{LastStatus: prior, LastCheck: 1700000000}}
	dispatcher := &fakeDispatcher{}
	m := New(testConfig(), provider, store, dispatcher, nil)

	summary, err := m.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}
	return store, dispatcher, summary
}

func existing(age int64) *fakeProvider {
	return &fakeProvider{info: model.RouteInfo{
		Exists:     true,
		AgeSeconds: age,
		NextHop:    netip.MustParseAddr("192.0.2.1"),
		Metric:     100,
	}}
}

func TestTransitionAlerts(t *testing.T) {
	tests := []struct {
		name     string
		prior    model.Status
		provider *fakeProvider
		want     alert.Kind // empty means no alert
		saved    model.Status
	}{
		{"stable route disappears", model.StatusStable, &fakeProvider{}, alert.KindMissing, model.StatusMissing},
		{"flapping route disappears", model.StatusFlapping, &fakeProvider{}, alert.KindMissing, model.StatusMissing},
		{"unknown prior with absent route", model.StatusUnknown, &fakeProvider{}, alert.KindMissing, model.StatusMissing},
		{"missing route reappears young", model.StatusMissing, existing(5), alert.KindFlapping, model.StatusFlapping},
		{"stable route starts flapping", model.StatusStable, existing(30), alert.KindFlapping, model.StatusFlapping},
		{"unknown prior with young route", model.StatusUnknown, existing(5), alert.KindFlapping, model.StatusFlapping},
		{"flapping route settles", model.StatusFlapping, existing(120), alert.KindRecovered, model.StatusStable},
		{"missing route returns stable", model.StatusMissing, existing(500), alert.KindRecovered, model.StatusStable},
		{"cold start on a stable route", model.StatusUnknown, existing(500), "", model.StatusStable},
		{"still missing", model.StatusMissing, &fakeProvider{}, "", model.StatusMissing},
		{"still flapping", model.StatusFlapping, existing(10), "", model.StatusFlapping},
		{"still stable", model.StatusStable, existing(900), "", model.StatusStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dispatcher, summary := run(t, tt.prior, tt.provider)

			if tt.want == "" {
				if len(dispatcher.kinds) != 0 {
					t.Errorf("dispatched %v, want no alert", dispatcher.kinds)
				}
			} else {
				if len(dispatcher.kinds) != 1 || dispatcher.kinds[0] != tt.want {
					t.Errorf("dispatched %v, want exactly one %s", dispatcher.kinds, tt.want)
				}
			}

			if len(store.saved) != 1 || store.saved[0] != tt.saved {
				t.Errorf("saved %v, want exactly one save of %s", store.saved, tt.saved)
			}
			if summary.Current != tt.saved {
				t.Errorf("summary.Current = %s, want %s", summary.Current, tt.saved)
			}
			if summary.Alerted != tt.want {
				t.Errorf("summary.Alerted = %q, want %q", summary.Alerted, tt.want)
			}
		})
	}
}

func TestQueryFailureFoldsIntoAbsence(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rpc deadline exceeded")}
	store, dispatcher, summary := run(t, model.StatusStable, provider)

	if summary.Current != model.StatusMissing {
		t.Errorf("summary.Current = %s, want MISSING after a query failure", summary.Current)
	}
	if len(dispatcher.kinds) != 1 || dispatcher.kinds[0] != alert.KindMissing {
		t.Errorf("dispatched %v, want one MISSING alert", dispatcher.kinds)
	}
	if len(store.saved) != 1 || store.saved[0] != model.StatusMissing {
		t.Errorf("saved %v, want MISSING", store.saved)
	}
}

func TestAlertContext(t *testing.T) {
	t.Run("existing route carries observed next hop and age", func(t *testing.T) {
		_, dispatcher, _ := run(t, model.StatusMissing, existing(5))

		if len(dispatcher.contexts) != 1 {
			t.Fatalf("got %d dispatches, want 1", len(dispatcher.contexts))
		}
		actx := dispatcher.contexts[0]
		if actx.NextHop != "192.0.2.1" || !actx.HasAge || actx.AgeSeconds != 5 {
			t.Errorf("context = %+v, want next hop 192.0.2.1 with age 5", actx)
		}
		if actx.Route != "203.0.113.0/24" {
			t.Errorf("context.Route = %q, want the watched prefix", actx.Route)
		}
	})

	t.Run("absent route carries the expected next hop and no age", func(t *testing.T) {
		_, dispatcher, _ := run(t, model.StatusStable, &fakeProvider{})

		actx := dispatcher.contexts[0]
		if actx.NextHop != "192.0.2.1" || actx.HasAge {
			t.Errorf("context = %+v, want expected next hop and HasAge=false", actx)
		}
	})
}

func TestCollaboratorFailuresAreSwallowed(t *testing.T) {
	t.Run("save failure does not abort the cycle", func(t *testing.T) {
		store := &fakeStore{
			prior:   model.MonitorState{LastStatus: model.StatusStable},
			saveErr: errors.New("disk full"),
		}
		m := New(testConfig(), existing(900), store, &fakeDispatcher{}, nil)

		if _, err := m.RunCycle(context.Background()); err != nil {
			t.Errorf("RunCycle returned error: %v", err)
		}
		if len(store.saved) != 1 {
			t.Errorf("Save called %d times, want 1", len(store.saved))
		}
	})

	t.Run("dispatch failure does not abort the cycle or skip the save", func(t *testing.T) {
		store := &fakeStore{prior: model.MonitorState{LastStatus: model.StatusStable}}
		dispatcher := &fakeDispatcher{err: errors.New("all channels failed")}
		m := New(testConfig(), &fakeProvider{}, store, dispatcher, nil)

		if _, err := m.RunCycle(context.Background()); err != nil {
			t.Errorf("RunCycle returned error: %v", err)
		}
		if len(store.saved) != 1 || store.saved[0] != model.StatusMissing {
			t.Errorf("saved %v, want MISSING despite dispatch failure", store.saved)
		}
	})
}

func TestSummaryString(t *testing.T) {
	_, _, summary := run(t, model.StatusMissing, existing(5))

	s := summary.String()
	for _, want := range []string{"203.0.113.0/24", "192.0.2.1", "MISSING", "FLAPPING"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary %q does not mention %q", s, want)
		}
	}
}
