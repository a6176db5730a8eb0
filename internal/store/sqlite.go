package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sparklepop/Code-Project-Review/internal/apperr"
	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows a single writer; one connection serializes access from
	// the HTTP handlers and the background runner.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Code Reviews ---

const reviewColumns = `id, repository_url, candidate_name, reviewer_name, non_working_solution, overall_comments,
	status, error_message, rubric, result_json, total_score, assessment_level, assessment_tier,
	created_at, updated_at, analyzed_at`

// listColumns skips the stored result, which list views never need.
const listColumns = `id, repository_url, candidate_name, reviewer_name, non_working_solution, overall_comments,
	status, error_message, rubric, '' AS result_json, total_score, assessment_level, assessment_tier,
	created_at, updated_at, analyzed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*models.CodeReview, error) {
	r := &models.CodeReview{}
	var nonWorking int
	var status, resultJSON string
	var analyzedAt sql.NullTime

	if err := row.Scan(&r.ID, &r.RepositoryURL, &r.CandidateName, &r.ReviewerName, &nonWorking, &r.OverallComments,
		&status, &r.ErrorMessage, &r.Rubric, &resultJSON, &r.TotalScore, &r.AssessmentLevel, &r.AssessmentTier,
		&r.CreatedAt, &r.UpdatedAt, &analyzedAt); err != nil {
		return nil, err
	}

	r.NonWorking = nonWorking != 0
	r.Status = models.ReviewStatus(status)
	if analyzedAt.Valid {
		r.AnalyzedAt = &analyzedAt.Time
	}
	if resultJSON != "" {
		var res scoring.ReviewResult
		if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
			return nil, fmt.Errorf("decode result of review %s: %w", r.ID, err)
		}
		r.Result = &res
	}
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeResult(res *scoring.ReviewResult) (string, error) {
	if res == nil {
		return "", nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}

func (s *SQLiteStore) CreateReview(ctx context.Context, r *models.CodeReview) error {
	if r.ID == "" {
		r.ID = newULID()
	}
	if r.Status == "" {
		r.Status = models.ReviewStatusPending
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	resultJSON, err := encodeResult(r.Result)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO code_reviews (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RepositoryURL, r.CandidateName, r.ReviewerName, boolToInt(r.NonWorking), r.OverallComments,
		string(r.Status), r.ErrorMessage, r.Rubric, resultJSON, r.TotalScore, r.AssessmentLevel, r.AssessmentTier,
		r.CreatedAt, r.UpdatedAt, r.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*models.CodeReview, error) {
	r, err := scanReview(s.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM code_reviews WHERE id = ?`, id))
	if err == nil {
		return r, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if id == "" {
		return nil, apperr.NotFound("review", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM code_reviews WHERE id LIKE ? ORDER BY id LIMIT 2`, strings.ToUpper(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*models.CodeReview
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, apperr.NotFound("review", id)
	case 1:
		return matches[0], nil
	default:
		return nil, apperr.Conflict(fmt.Sprintf("review id prefix %s is ambiguous", id))
	}
}

func (s *SQLiteStore) ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.CodeReview, error) {
	query := `SELECT ` + listColumns + ` FROM code_reviews`
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Candidate != "" {
		conditions = append(conditions, "candidate_name LIKE ?")
		args = append(args, "%"+filter.Candidate+"%")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reviews []*models.CodeReview
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *SQLiteStore) UpdateReview(ctx context.Context, r *models.CodeReview) error {
	r.UpdatedAt = time.Now().UTC()
	resultJSON, err := encodeResult(r.Result)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE code_reviews SET repository_url=?, candidate_name=?, reviewer_name=?, non_working_solution=?,
		overall_comments=?, status=?, error_message=?, rubric=?, result_json=?, total_score=?,
		assessment_level=?, assessment_tier=?, updated_at=?, analyzed_at=?
		WHERE id=?`,
		r.RepositoryURL, r.CandidateName, r.ReviewerName, boolToInt(r.NonWorking),
		r.OverallComments, string(r.Status), r.ErrorMessage, r.Rubric, resultJSON, r.TotalScore,
		r.AssessmentLevel, r.AssessmentTier, r.UpdatedAt, r.AnalyzedAt,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("review", r.ID)
	}
	return nil
}

func (s *SQLiteStore) UpdateReviewStatus(ctx context.Context, id string, status models.ReviewStatus, errMsg string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE code_reviews SET status=?, error_message=?, updated_at=? WHERE id=?`,
		string(status), errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("review", id)
	}
	return nil
}

func (s *SQLiteStore) SaveResult(ctx context.Context, id string, res *scoring.ReviewResult) error {
	if res == nil {
		return fmt.Errorf("save result: nil result for review %s", id)
	}
	resultJSON, err := encodeResult(res)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE code_reviews SET status=?, error_message='', result_json=?, total_score=?,
		assessment_level=?, assessment_tier=?, rubric=?, non_working_solution=?,
		overall_comments=CASE
			WHEN overall_comments = '' THEN ?
			WHEN result_json <> '' AND overall_comments = json_extract(result_json, '$.overall_comments') THEN ?
			ELSE overall_comments END,
		analyzed_at=?, updated_at=?
		WHERE id=?`,
		string(models.ReviewStatusCompleted), resultJSON, res.GrandTotal.Float(),
		string(res.AssessmentLevel), res.AssessmentTier, res.Rubric, boolToInt(res.NonWorking),
		res.OverallComments, res.OverallComments,
		now, now,
		id,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("review", id)
	}
	return nil
}

func (s *SQLiteStore) DeleteReview(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM code_reviews WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("review", id)
	}
	return nil
}
