package repo

import (
	"context"
	"database/sql"
	"fmt"

	"quotaline/internal/domain"
)

const (
	linkScopeAsset   = "asset"
	linkScopeEpisode = "episode"
	linkScopeSeason  = "season"
)

// InsertContentRecords stores records with their episodes and download links.
func (r Repo) InsertContentRecords(ctx context.Context, records ...domain.ContentRecord) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, rec := range records {
		if err := insertContentRecordTx(ctx, tx, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertContentRecordTx(ctx context.Context, tx *sql.Tx, rec domain.ContentRecord) error {
	kind := rec.Kind
	if kind == "" {
		kind = domain.ContentKindSingle
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO content_records(id,title,kind,uploaded_by,created_at) VALUES (?,?,?,?,?)`,
		rec.ID, nullable(rec.Title), string(kind), rec.UploadedBy, formatTime(rec.CreatedAt)); err != nil {
		return fmt.Errorf("insert content %s: %w", rec.ID, err)
	}
	insertLinks := func(scope string, episode *int, links []domain.DownloadLink) error {
		for i, l := range links {
			if _, err := tx.ExecContext(ctx, `INSERT INTO content_links(record_id,scope,episode,position,label,url) VALUES (?,?,?,?,?,?)`,
				rec.ID, scope, nullableInt(episode), i, nullable(l.Label), l.URL); err != nil {
				return fmt.Errorf("insert %s link for %s: %w", scope, rec.ID, err)
			}
		}
		return nil
	}
	if err := insertLinks(linkScopeAsset, nil, rec.DownloadLinks); err != nil {
		return err
	}
	for _, ep := range rec.Episodes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO content_episodes(record_id,number,title) VALUES (?,?,?)`,
			rec.ID, ep.Number, nullable(ep.Title)); err != nil {
			return fmt.Errorf("insert episode %d for %s: %w", ep.Number, rec.ID, err)
		}
		number := ep.Number
		if err := insertLinks(linkScopeEpisode, &number, ep.DownloadLinks); err != nil {
			return err
		}
	}
	return insertLinks(linkScopeSeason, nil, rec.SeasonDownloads)
}

// ListContentRecords returns every record ordered by creation time.
func (r Repo) ListContentRecords(ctx context.Context) ([]domain.ContentRecord, error) {
	return r.listContent(ctx, ``)
}

// ListContentRecordsByUploader narrows the listing to one admin name.
func (r Repo) ListContentRecordsByUploader(ctx context.Context, name string) ([]domain.ContentRecord, error) {
	return r.listContent(ctx, `WHERE uploaded_by=?`, name)
}

func (r Repo) listContent(ctx context.Context, where string, args ...any) ([]domain.ContentRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,title,kind,uploaded_by,created_at FROM content_records `+where+` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	var res []domain.ContentRecord
	index := map[string]int{}
	for rows.Next() {
		var rec domain.ContentRecord
		var title sql.NullString
		var kind, created string
		if err := rows.Scan(&rec.ID, &title, &kind, &rec.UploadedBy, &created); err != nil {
			rows.Close()
			return nil, err
		}
		rec.Title = title.String
		rec.Kind = domain.ContentKind(kind)
		if rec.CreatedAt, err = parseTime(created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("content %s created_at: %w", rec.ID, err)
		}
		index[rec.ID] = len(res)
		res = append(res, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return res, nil
	}
	if err := r.attachEpisodes(ctx, res, index); err != nil {
		return nil, err
	}
	if err := r.attachLinks(ctx, res, index); err != nil {
		return nil, err
	}
	return res, nil
}

func (r Repo) attachEpisodes(ctx context.Context, res []domain.ContentRecord, index map[string]int) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT record_id,number,title FROM content_episodes ORDER BY record_id, number`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var recordID string
		var ep domain.Episode
		var title sql.NullString
		if err := rows.Scan(&recordID, &ep.Number, &title); err != nil {
			return err
		}
		i, ok := index[recordID]
		if !ok {
			continue
		}
		ep.Title = title.String
		res[i].Episodes = append(res[i].Episodes, ep)
	}
	return rows.Err()
}

func (r Repo) attachLinks(ctx context.Context, res []domain.ContentRecord, index map[string]int) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT record_id,scope,episode,label,url FROM content_links ORDER BY record_id, scope, episode, position`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var recordID, scope, url string
		var episode sql.NullInt64
		var label sql.NullString
		if err := rows.Scan(&recordID, &scope, &episode, &label, &url); err != nil {
			return err
		}
		i, ok := index[recordID]
		if !ok {
			continue
		}
		link := domain.DownloadLink{Label: label.String, URL: url}
		rec := &res[i]
		switch scope {
		case linkScopeAsset:
			rec.DownloadLinks = append(rec.DownloadLinks, link)
		case linkScopeSeason:
			rec.SeasonDownloads = append(rec.SeasonDownloads, link)
		case linkScopeEpisode:
			for j := range rec.Episodes {
				if int64(rec.Episodes[j].Number) == episode.Int64 {
					rec.Episodes[j].DownloadLinks = append(rec.Episodes[j].DownloadLinks, link)
					break
				}
			}
		}
	}
	return rows.Err()
}
