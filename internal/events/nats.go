package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"phishguard-engine/internal/domain"
)

const (
	subjectLevelUp = "progression.levelup"
	subjectBadge   = "progression.badge"
)

// Publisher emits progression notifications on NATS subjects for other
// services (mail digests, admin dashboards). Publishing is fire-and-forget;
// the caller treats failures as log-and-continue.
type Publisher struct {
	conn *nats.Conn
}

func Connect(url string) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

type levelUpMessage struct {
	UserID string `json:"userId"`
	From   int    `json:"from"`
	To     int    `json:"to"`
	At     int64  `json:"at"`
}

type badgeMessage struct {
	UserID string `json:"userId"`
	Badge  string `json:"badge"`
	At     int64  `json:"at"`
}

func (p *Publisher) LevelUp(userID string, up domain.LevelUp) error {
	payload, err := json.Marshal(levelUpMessage{
		UserID: userID,
		From:   up.From,
		To:     up.To,
		At:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return p.conn.Publish(subjectLevelUp, payload)
}

func (p *Publisher) BadgeUnlocked(userID, badge string) error {
	payload, err := json.Marshal(badgeMessage{
		UserID: userID,
		Badge:  badge,
		At:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return p.conn.Publish(subjectBadge, payload)
}
