package storage

import (
	"strings"
	"time"
)

type SessionMessageMatch struct {
	SessionID    string
	SessionTitle string
	MessageIndex int
	Role         string
	Text         string
	Preview      string
	Timestamp    time.Time
}

type SearchIndex struct {
	storage *SessionStorage
}

func NewSearchIndex(storage *SessionStorage) *SearchIndex {
	return &SearchIndex{storage: storage}
}

// SearchAllSessions scans every stored session for messages containing the
// query, case-insensitively.
func (si *SearchIndex) SearchAllSessions(query string) ([]SessionMessageMatch, error) {
	if query == "" {
		return []SessionMessageMatch{}, nil
	}

	sessionList, err := si.storage.List()
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var matches []SessionMessageMatch

	for _, sessionMeta := range sessionList {
		session, err := si.storage.Load(sessionMeta.ID)
		if err != nil {
			continue
		}

		for i, msg := range session.Messages {
			if !strings.Contains(strings.ToLower(msg.Text), queryLower) {
				continue
			}

			preview := msg.Text
			if len(preview) > 100 {
				preview = preview[:100] + "..."
			}

			matches = append(matches, SessionMessageMatch{
				SessionID:    session.ID,
				SessionTitle: session.Title,
				MessageIndex: i,
				Role:         msg.Role,
				Text:         msg.Text,
				Preview:      preview,
				Timestamp:    msg.Timestamp,
			})
		}
	}

	return matches, nil
}
