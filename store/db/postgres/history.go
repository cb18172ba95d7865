package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/autogenz/movieai/store"
)

func (db *DB) AddHistoryMark(ctx context.Context, mark *store.HistoryMark, kind store.HistoryKind) error {
	createdTs := mark.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().Unix()
	}
	query := `
		INSERT INTO user_history (user_id, platform, kp_id, kind, created_ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, platform, kp_id, kind) DO NOTHING
	`
	_, err := db.db.ExecContext(ctx, query,
		mark.User.UserID,
		mark.User.Platform,
		mark.KpID,
		string(kind),
		createdTs,
	)
	if err != nil {
		return errors.Wrap(err, "failed to add history mark")
	}
	return nil
}

func (db *DB) ListHistoryKpIDs(ctx context.Context, user store.UserKey, kind store.HistoryKind) ([]int64, error) {
	query := `
		SELECT kp_id FROM user_history
		WHERE user_id = $1 AND platform = $2 AND kind = $3
		ORDER BY created_ts DESC
	`
	rows, err := db.db.QueryContext(ctx, query, user.UserID, user.Platform, string(kind))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list history marks")
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan history mark")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list history marks")
	}
	return ids, nil
}
