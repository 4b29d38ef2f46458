package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gotest.tools/assert"
)

type memoryRepo struct {
	channels []Channel
}

func (m *memoryRepo) Create(c Channel) (int64, error) {
	c.ID = int64(len(m.channels) + 1)
	m.channels = append(m.channels, c)
	return c.ID, nil
}

func (m *memoryRepo) Update(id int64, c Channel) error { return nil }
func (m *memoryRepo) Delete(id int64) error            { return nil }

func (m *memoryRepo) List() ([]Channel, error) {
	return append([]Channel(nil), m.channels...), nil
}

type delivery struct {
	signature string
	body      []byte
}

func receiver(got chan delivery) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- delivery{signature: r.Header.Get("X-Webhook-Signature"), body: body}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestDispatchFiltersByEventAndEnabled(t *testing.T) {
	got := make(chan delivery, 4)
	srv := receiver(got)
	defer srv.Close()

	repo := &memoryRepo{}
	_, _ = repo.Create(Channel{Name: "subscribed", URL: srv.URL, Events: []string{"rollout.completed"}, Enabled: true})
	_, _ = repo.Create(Channel{Name: "other-event", URL: srv.URL, Events: []string{"wave.completed"}, Enabled: true})
	_, _ = repo.Create(Channel{Name: "disabled", URL: srv.URL, Events: []string{"rollout.completed"}, Enabled: false})

	s := &Service{Repo: repo, TimeoutSec: 2, Retries: 0}
	s.Dispatch("rollout.completed", map[string]string{"rolloutId": "ro-1"})

	select {
	case d := <-got:
		var p EventPayload
		assert.NilError(t, json.Unmarshal(d.body, &p))
		assert.Equal(t, p.Event, "rollout.completed")
	case <-time.After(3 * time.Second):
		t.Fatal("no delivery received")
	}

	select {
	case <-got:
		t.Fatal("unexpected second delivery")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDispatchSignsPayload(t *testing.T) {
	got := make(chan delivery, 1)
	srv := receiver(got)
	defer srv.Close()

	repo := &memoryRepo{}
	_, _ = repo.Create(Channel{URL: srv.URL, Events: []string{"wave.completed"}, Enabled: true})

	s := &Service{Repo: repo, Secret: "s3cret", TimeoutSec: 2, Retries: 0}
	s.Dispatch("wave.completed", map[string]int{"wave": 2})

	select {
	case d := <-got:
		assert.Equal(t, d.signature, hmacHex([]byte("s3cret"), d.body))
	case <-time.After(3 * time.Second):
		t.Fatal("no delivery received")
	}
}

func TestDeliveryRetriesUntilSuccess(t *testing.T) {
	var attempts int
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		close(done)
	}))
	defer srv.Close()

	repo := &memoryRepo{}
	_, _ = repo.Create(Channel{URL: srv.URL, Events: []string{"rollout.halted"}, Enabled: true})

	s := &Service{Repo: repo, TimeoutSec: 2, Retries: 3}
	s.Dispatch("rollout.halted", nil)

	select {
	case <-done:
		assert.Equal(t, attempts, 3)
	case <-time.After(5 * time.Second):
		t.Fatalf("delivery never succeeded, attempts=%d", attempts)
	}
}
