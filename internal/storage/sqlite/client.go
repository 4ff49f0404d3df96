package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

var ErrSiteNotFound = errors.New("site not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sites (
		id TEXT PRIMARY KEY,
		domain TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		fallback_message TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sites_domain ON sites(domain);

	CREATE TABLE IF NOT EXISTS faqs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		category TEXT,
		site_scope_id TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		keywords TEXT,
		embedding TEXT,
		priority INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (site_scope_id) REFERENCES sites(id)
	);
	CREATE INDEX IF NOT EXISTS idx_faqs_scope ON faqs(site_scope_id);
	CREATE INDEX IF NOT EXISTS idx_faqs_active ON faqs(active);
	CREATE INDEX IF NOT EXISTS idx_faqs_category ON faqs(category);

	CREATE TABLE IF NOT EXISTS chat_history (
		id TEXT PRIMARY KEY,
		channel TEXT,
		user_id TEXT,
		message TEXT NOT NULL,
		answer TEXT,
		source TEXT NOT NULL,
		success INTEGER NOT NULL,
		confidence REAL,
		matched_faq_id INTEGER,
		intent TEXT,
		site_scope_id TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_user ON chat_history(user_id);
	CREATE INDEX IF NOT EXISTS idx_chat_created ON chat_history(created_at);
	CREATE INDEX IF NOT EXISTS idx_chat_source ON chat_history(source);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// ListActiveFAQs returns every active FAQ across all scopes. Scope filtering
// happens on the in-memory snapshot, not in SQL, so a single query feeds the
// whole index rebuild.
func (c *Client) ListActiveFAQs(ctx context.Context) ([]models.FAQRecord, error) {
	query := `
		SELECT id, question, answer, category, site_scope_id, active, keywords, embedding, priority, created_at, updated_at
		FROM faqs
		WHERE active = 1
		ORDER BY id
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list faqs: %w", err)
	}
	defer rows.Close()

	var records []models.FAQRecord
	for rows.Next() {
		var r models.FAQRecord
		var category, keywordsJSON, embeddingJSON sql.NullString
		var scopeID sql.NullString
		var active int
		var createdAt, updatedAt int64

		err := rows.Scan(&r.ID, &r.Question, &r.Answer, &category, &scopeID, &active,
			&keywordsJSON, &embeddingJSON, &r.Priority, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Category = category.String
		if scopeID.Valid {
			s := scopeID.String
			r.SiteScopeID = &s
		}
		r.Active = active == 1
		if keywordsJSON.Valid && keywordsJSON.String != "" {
			if err := json.Unmarshal([]byte(keywordsJSON.String), &r.Keywords); err != nil {
				logger.Warn("Malformed keywords column", zap.Int64("faq_id", r.ID), zap.Error(err))
			}
		}
		if embeddingJSON.Valid && embeddingJSON.String != "" {
			if err := json.Unmarshal([]byte(embeddingJSON.String), &r.Embedding); err != nil {
				logger.Warn("Malformed embedding column", zap.Int64("faq_id", r.ID), zap.Error(err))
			}
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		r.UpdatedAt = time.Unix(updatedAt, 0)

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate faqs: %w", err)
	}

	return records, nil
}

// UpdateFAQEmbedding persists an embedding computed during an index rebuild so
// the next rebuild does not have to recompute it.
func (c *Client) UpdateFAQEmbedding(ctx context.Context, faqID int64, embedding []float32) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`UPDATE faqs SET embedding = ?, updated_at = ? WHERE id = ?`,
		string(data), time.Now().Unix(), faqID)
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}

func (c *Client) SiteByDomain(ctx context.Context, domain string) (*models.Site, error) {
	query := `SELECT id, domain, name, fallback_message, active, created_at FROM sites WHERE domain = ? AND active = 1`

	var site models.Site
	var fallback sql.NullString
	var active int
	var createdAt int64

	err := c.db.QueryRowContext(ctx, query, domain).Scan(
		&site.ID, &site.Domain, &site.Name, &fallback, &active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrSiteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	site.FallbackMessage = fallback.String
	site.Active = active == 1
	site.CreatedAt = time.Unix(createdAt, 0)

	return &site, nil
}

func (c *Client) InsertChatLog(record *models.ChatLog) error {
	query := `
		INSERT INTO chat_history (id, channel, user_id, message, answer, source, success,
			confidence, matched_faq_id, intent, site_scope_id, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	success := 0
	if record.Success {
		success = 1
	}

	var matchedID interface{}
	if record.MatchedFAQID != nil {
		matchedID = *record.MatchedFAQID
	}
	var scopeID interface{}
	if record.SiteScopeID != nil {
		scopeID = *record.SiteScopeID
	}

	_, err := c.db.Exec(
		query,
		record.ID,
		record.Channel,
		record.UserID,
		record.Message,
		record.Answer,
		record.Source,
		success,
		record.Confidence,
		matchedID,
		record.Intent,
		scopeID,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert chat log: %w", err)
	}

	logger.Debug("Chat recorded",
		zap.String("chat_id", record.ID),
		zap.String("source", record.Source),
		zap.Float64("confidence", record.Confidence),
	)

	return nil
}

func (c *Client) ChatHistory(ctx context.Context, userID string, limit int) ([]models.ChatLog, error) {
	query := `
		SELECT id, channel, message, answer, source, success, confidence, intent, latency_ms, created_at
		FROM chat_history
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history: %w", err)
	}
	defer rows.Close()

	var records []models.ChatLog
	for rows.Next() {
		var r models.ChatLog
		var answer, intent sql.NullString
		var success int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.Channel, &r.Message, &answer, &r.Source, &success,
			&r.Confidence, &intent, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.UserID = userID
		r.Answer = answer.String
		r.Intent = intent.String
		r.Success = success == 1
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}
