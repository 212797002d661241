package storage

import "wingmate/backend/internal/models"

// ListMatchSummaries returns the viewer's matches ordered by most recent
// activity, each with a last-message preview and the count of messages
// the viewer has not read yet. Self-authored messages never count as
// unread.
func (s *Service) ListMatchSummaries(viewerID string) ([]models.MatchSummary, error) {
	rawSQL := `
        SELECT
            m.id,
            m.user_a,
            m.user_b,
            m.seed_id,
            m.autopilot_enabled,
            m.status,
            m.created_at,
            m.last_message_at,
            lm.text      AS last_message_text,
            lm.sender_id AS last_message_sender_id,
            COALESCE(lm.is_seed, false) AS last_message_is_seed,
            (
                SELECT COUNT(*)
                FROM messages msg
                WHERE msg.match_id = m.id
                  AND (msg.sender_id IS NULL OR msg.sender_id <> ?)
                  AND msg.created_at > to_timestamp(COALESCE(rr.last_read_at, 0) / 1000.0)
            ) AS unread_count
        FROM matches m
        LEFT JOIN LATERAL (
            SELECT text, sender_id, is_seed
            FROM messages
            WHERE match_id = m.id
            ORDER BY created_at DESC
            LIMIT 1
        ) lm ON true
        LEFT JOIN read_receipts rr
            ON rr.match_id = m.id AND rr.user_id = ?
        WHERE m.user_a = ? OR m.user_b = ?
        ORDER BY COALESCE(m.last_message_at, m.created_at) DESC
    `

	var summaries []models.MatchSummary
	err := s.DB.Raw(rawSQL, viewerID, viewerID, viewerID, viewerID).
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
