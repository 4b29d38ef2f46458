package notify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Repository persists notification channels.
type Repository interface {
	Create(c Channel) (int64, error)
	Update(id int64, c Channel) error
	Delete(id int64) error
	List() ([]Channel, error)
}

// Service fans rollout events out to subscribed channels.
type Service struct {
	Repo       Repository
	Secret     string
	TimeoutSec int
	Retries    int
}

func (s *Service) Dispatch(event string, data any) {
	channels, err := s.Repo.List()
	if err != nil {
		log.Error().
			Err(err).
			Str("event", event).
			Msg("Failed to list notification channels for event dispatch")
		return
	}

	payload := EventPayload{
		Event: event,
		Data:  data,
		Time:  time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().
			Err(err).
			Str("event", event).
			Msg("Failed to marshal notification payload")
		return
	}

	dispatchCount := 0
	for _, c := range channels {
		if !c.Enabled || !contains(c.Events, event) {
			continue
		}
		dispatchCount++
		go s.deliver(c.URL, body, event)
	}

	if dispatchCount > 0 {
		log.Info().
			Str("event", event).
			Int("channel_count", dispatchCount).
			Msg("Dispatching notification event")
	} else {
		log.Debug().
			Str("event", event).
			Msg("No notification channels configured for event")
	}
}

func (s *Service) deliver(url string, body []byte, event string) {
	timeout := time.Duration(s.TimeoutSec) * time.Second
	retries := s.Retries
	if retries < 0 {
		retries = 0
	}

	log.Debug().
		Str("url", url).
		Str("event", event).
		Int("max_retries", retries).
		Msg("Starting notification delivery")

	for attempt := 0; attempt <= retries; attempt++ {
		req, _ := http.NewRequest("POST", url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if s.Secret != "" {
			req.Header.Set("X-Webhook-Signature", hmacHex([]byte(s.Secret), body))
		}

		client := &http.Client{Timeout: timeout}
		resp, err := client.Do(req)

		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			log.Info().
				Str("url", url).
				Str("event", event).
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Msg("Notification delivered successfully")
			_ = resp.Body.Close()
			return
		}

		if err != nil {
			log.Warn().
				Err(err).
				Str("url", url).
				Str("event", event).
				Int("attempt", attempt+1).
				Int("max_attempts", retries+1).
				Msg("Notification delivery failed with error")
		} else {
			log.Warn().
				Str("url", url).
				Str("event", event).
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Int("max_attempts", retries+1).
				Msg("Notification delivery failed with non-2xx status")
			_ = resp.Body.Close()
		}

		if attempt < retries {
			backoff := time.Duration(attempt+1) * 500 * time.Millisecond
			log.Debug().
				Str("url", url).
				Dur("backoff_ms", backoff).
				Msg("Waiting before notification retry")
			time.Sleep(backoff)
		}
	}

	log.Error().
		Str("url", url).
		Str("event", event).
		Int("attempts", retries+1).
		Msg("Notification delivery failed after all retries")
}

func hmacHex(secret, data []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write(data)
	return hex.EncodeToString(m.Sum(nil))
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
