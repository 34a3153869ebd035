package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/abrezinsky/galajudge/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS galas (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nom TEXT NOT NULL,
			annee INTEGER NOT NULL,
			locked BOOLEAN NOT NULL DEFAULT 0,
			locked_at TEXT,
			locked_by TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS gala_categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			gala_id INTEGER NOT NULL,
			nom TEXT NOT NULL,
			segment TEXT,
			FOREIGN KEY (gala_id) REFERENCES galas(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS companies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nom TEXT NOT NULL,
			ville TEXT,
			secteur TEXT,
			responsable_nom TEXT,
			responsable_titre TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			gala_categorie_id INTEGER NOT NULL,
			compagnie_id INTEGER NOT NULL,
			FOREIGN KEY (gala_categorie_id) REFERENCES gala_categories(id) ON DELETE CASCADE,
			FOREIGN KEY (compagnie_id) REFERENCES companies(id) ON DELETE CASCADE,
			UNIQUE(gala_categorie_id, compagnie_id)
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			gala_categorie_id INTEGER NOT NULL,
			texte TEXT NOT NULL,
			ponderation REAL NOT NULL DEFAULT 1,
			shared BOOLEAN NOT NULL DEFAULT 0,
			ordre INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (gala_categorie_id) REFERENCES gala_categories(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS responses (
			participant_id INTEGER NOT NULL,
			question_id INTEGER NOT NULL,
			reponse TEXT NOT NULL,
			PRIMARY KEY (participant_id, question_id),
			FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE,
			FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS judges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nom TEXT NOT NULL,
			access_code TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS judge_assignments (
			judge_id INTEGER NOT NULL,
			gala_categorie_id INTEGER NOT NULL,
			PRIMARY KEY (judge_id, gala_categorie_id),
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE CASCADE,
			FOREIGN KEY (gala_categorie_id) REFERENCES gala_categories(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			judge_id INTEGER NOT NULL,
			participant_id INTEGER NOT NULL,
			question_id INTEGER NOT NULL,
			valeur INTEGER CHECK (valeur IS NULL OR (valeur BETWEEN 1 AND 6)),
			commentaire TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE CASCADE,
			FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE,
			FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE,
			UNIQUE(judge_id, participant_id, question_id)
		)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			judge_id INTEGER NOT NULL,
			gala_categorie_id INTEGER NOT NULL,
			participant_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (judge_id, gala_categorie_id),
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE CASCADE,
			FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			judge_id INTEGER NOT NULL,
			gala_id INTEGER NOT NULL,
			submitted_at TEXT NOT NULL,
			PRIMARY KEY (judge_id, gala_id),
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE CASCADE,
			FOREIGN KEY (gala_id) REFERENCES galas(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_judge_participant ON notes(judge_id, participant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_category ON participants(gala_categorie_id)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_company ON participants(compagnie_id)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(gala_categorie_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_category ON judge_assignments(gala_categorie_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// placeholders returns "?, ?, ?" for n arguments
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ==================== Gala Methods ====================

// CreateGala creates a new gala
func (r *Repository) CreateGala(ctx context.Context, name string, year int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `INSERT INTO galas (nom, annee) VALUES (?, ?)`, name, year)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetGala returns a gala by ID
func (r *Repository) GetGala(ctx context.Context, galaID int) (*models.Gala, error) {
	var g models.Gala
	var lockedAt sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, nom, annee, locked, locked_at FROM galas WHERE id = ?
	`, galaID).Scan(&g.ID, &g.Name, &g.Year, &g.Locked, &lockedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	g.LockedAt = lockedAt.String
	return &g, nil
}

// ListGalas returns every gala, newest year first
func (r *Repository) ListGalas(ctx context.Context) ([]models.Gala, error) {
	return r.queryGalas(ctx, `
		SELECT id, nom, annee, locked, locked_at FROM galas ORDER BY annee DESC, nom
	`)
}

// ListGalasForJudge returns the galas in which the judge has at least one
// assigned category, newest year first then by name
func (r *Repository) ListGalasForJudge(ctx context.Context, judgeID int) ([]models.Gala, error) {
	return r.queryGalas(ctx, `
		SELECT DISTINCT g.id, g.nom, g.annee, g.locked, g.locked_at
		FROM galas g
		JOIN gala_categories gc ON gc.gala_id = g.id
		JOIN judge_assignments ja ON ja.gala_categorie_id = gc.id
		WHERE ja.judge_id = ?
		ORDER BY g.annee DESC, g.nom
	`, judgeID)
}

func (r *Repository) queryGalas(ctx context.Context, query string, args ...interface{}) ([]models.Gala, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var galas []models.Gala
	for rows.Next() {
		var g models.Gala
		var lockedAt sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &g.Year, &g.Locked, &lockedAt); err != nil {
			return nil, err
		}
		g.LockedAt = lockedAt.String
		galas = append(galas, g)
	}
	return galas, rows.Err()
}

// SetGalaLock locks or unlocks a gala. Unlocking clears the lock metadata.
func (r *Repository) SetGalaLock(ctx context.Context, galaID int, locked bool, by string) error {
	var result sql.Result
	var err error
	if locked {
		result, err = r.db.ExecContext(ctx, `
			UPDATE galas SET locked = 1, locked_at = ?, locked_by = ? WHERE id = ?
		`, time.Now().UTC().Format(time.RFC3339), nullString(by), galaID)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE galas SET locked = 0, locked_at = NULL, locked_by = NULL WHERE id = ?
		`, galaID)
	}
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Category Methods ====================

// CreateCategory creates a gala category
func (r *Repository) CreateCategory(ctx context.Context, galaID int, name, segment string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO gala_categories (gala_id, nom, segment) VALUES (?, ?, ?)
	`, galaID, name, nullString(segment))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const categoryColumns = `
	gc.id, gc.gala_id, gc.nom, gc.segment,
	(SELECT COUNT(*) FROM questions q WHERE q.gala_categorie_id = gc.id) AS question_count,
	(SELECT COUNT(*) FROM participants p WHERE p.gala_categorie_id = gc.id) AS participant_count`

func scanCategory(scanner interface{ Scan(...interface{}) error }) (models.Category, error) {
	var c models.Category
	var segment sql.NullString
	err := scanner.Scan(&c.ID, &c.GalaID, &c.Name, &segment, &c.QuestionCount, &c.ParticipantCount)
	c.Segment = segment.String
	return c, err
}

// GetCategory returns a gala category with its question and participant counts
func (r *Repository) GetCategory(ctx context.Context, categoryID int) (*models.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM gala_categories gc WHERE gc.id = ?`, categoryID)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns every category of a gala ordered by name
func (r *Repository) ListCategories(ctx context.Context, galaID int) ([]models.Category, error) {
	return r.queryCategories(ctx, `
		SELECT `+categoryColumns+` FROM gala_categories gc WHERE gc.gala_id = ? ORDER BY gc.nom
	`, galaID)
}

// ListAssignedCategories returns the judge's categories in a gala ordered by name
func (r *Repository) ListAssignedCategories(ctx context.Context, judgeID, galaID int) ([]models.Category, error) {
	return r.queryCategories(ctx, `
		SELECT `+categoryColumns+`
		FROM gala_categories gc
		JOIN judge_assignments ja ON ja.gala_categorie_id = gc.id
		WHERE ja.judge_id = ? AND gc.gala_id = ?
		ORDER BY gc.nom
	`, judgeID, galaID)
}

func (r *Repository) queryCategories(ctx context.Context, query string, args ...interface{}) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// AssignJudge assigns a judge to a gala category
func (r *Repository) AssignJudge(ctx context.Context, judgeID, categoryID int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO judge_assignments (judge_id, gala_categorie_id) VALUES (?, ?)
	`, judgeID, categoryID)
	return err
}

// IsAssigned reports whether the judge scores the category
func (r *Repository) IsAssigned(ctx context.Context, judgeID, categoryID int) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM judge_assignments WHERE judge_id = ? AND gala_categorie_id = ?
	`, judgeID, categoryID).Scan(&count)
	return count > 0, err
}

// ==================== Participant Methods ====================

// CreateCompany creates a company that can be entered in categories
func (r *Repository) CreateCompany(ctx context.Context, c models.Participant) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (nom, ville, secteur, responsable_nom, responsable_titre)
		VALUES (?, ?, ?, ?, ?)
	`, c.Company, nullString(c.City), nullString(c.Sector), nullString(c.ContactName), nullString(c.ContactTitle))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CreateParticipant enters a company in a gala category
func (r *Repository) CreateParticipant(ctx context.Context, categoryID, companyID int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO participants (gala_categorie_id, compagnie_id) VALUES (?, ?)
	`, categoryID, companyID)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const participantColumns = `
	p.id, p.compagnie_id, p.gala_categorie_id, c.nom,
	c.ville, c.secteur, c.responsable_nom, c.responsable_titre`

func scanParticipant(scanner interface{ Scan(...interface{}) error }) (models.Participant, error) {
	var p models.Participant
	var city, sector, contact, title sql.NullString
	err := scanner.Scan(&p.ID, &p.CompanyID, &p.CategoryID, &p.Company, &city, &sector, &contact, &title)
	p.City = city.String
	p.Sector = sector.String
	p.ContactName = contact.String
	p.ContactTitle = title.String
	return p, err
}

// GetParticipant returns a participant with its company details
func (r *Repository) GetParticipant(ctx context.Context, participantID int) (*models.Participant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+participantColumns+`
		FROM participants p JOIN companies c ON c.id = p.compagnie_id
		WHERE p.id = ?
	`, participantID)
	p, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns a category's participants ordered by company name
func (r *Repository) ListParticipants(ctx context.Context, categoryID int) ([]models.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+participantColumns+`
		FROM participants p JOIN companies c ON c.id = p.compagnie_id
		WHERE p.gala_categorie_id = ?
		ORDER BY c.nom, p.id
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ==================== Question Methods ====================

// SharedQuestion is a shared question owned by another category, together
// with the company's participant record in that category
type SharedQuestion struct {
	models.Question
	Source        string
	ParticipantID int
}

// CreateQuestion adds a question to a category
func (r *Repository) CreateQuestion(ctx context.Context, q models.Question, order int) (int64, error) {
	weight := q.Weight
	if weight == 0 {
		weight = 1
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO questions (gala_categorie_id, texte, ponderation, shared, ordre)
		VALUES (?, ?, ?, ?, ?)
	`, q.CategoryID, q.Text, weight, q.Shared, order)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListQuestions returns a category's own questions in display order
func (r *Repository) ListQuestions(ctx context.Context, categoryID int) ([]models.Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, gala_categorie_id, texte, ponderation, shared
		FROM questions WHERE gala_categorie_id = ?
		ORDER BY ordre, id
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.CategoryID, &q.Text, &q.Weight, &q.Shared); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListSharedQuestions returns the shared questions of the other categories of
// the gala in which the company is entered
func (r *Repository) ListSharedQuestions(ctx context.Context, galaID, companyID, excludeCategoryID int) ([]SharedQuestion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT q.id, q.gala_categorie_id, q.texte, q.ponderation, q.shared, gc.nom, p.id
		FROM questions q
		JOIN gala_categories gc ON gc.id = q.gala_categorie_id
		JOIN participants p ON p.gala_categorie_id = gc.id AND p.compagnie_id = ?
		WHERE q.shared = 1 AND gc.gala_id = ? AND gc.id != ?
		ORDER BY gc.nom, q.ordre, q.id
	`, companyID, galaID, excludeCategoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []SharedQuestion
	for rows.Next() {
		var q SharedQuestion
		if err := rows.Scan(&q.ID, &q.CategoryID, &q.Text, &q.Weight, &q.Shared, &q.Source, &q.ParticipantID); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SetResponse stores a participant's written answer to a question
func (r *Repository) SetResponse(ctx context.Context, participantID, questionID int, text string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO responses (participant_id, question_id, reponse) VALUES (?, ?, ?)
		ON CONFLICT(participant_id, question_id) DO UPDATE SET reponse = excluded.reponse
	`, participantID, questionID, text)
	return err
}

// GetResponses returns a participant's answers keyed by question ID
func (r *Repository) GetResponses(ctx context.Context, participantID int) (map[int]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT question_id, reponse FROM responses WHERE participant_id = ?
	`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := make(map[int]string)
	for rows.Next() {
		var questionID int
		var text string
		if err := rows.Scan(&questionID, &text); err != nil {
			return nil, err
		}
		responses[questionID] = text
	}
	return responses, rows.Err()
}

// ==================== Note Methods ====================

func scanNote(scanner interface{ Scan(...interface{}) error }) (models.Note, error) {
	var n models.Note
	var value sql.NullInt64
	var comment sql.NullString
	if err := scanner.Scan(&n.JudgeID, &n.ParticipantID, &n.QuestionID, &value, &comment); err != nil {
		return n, err
	}
	if value.Valid {
		v := int(value.Int64)
		n.Value = &v
	}
	if comment.Valid {
		c := comment.String
		n.Comment = &c
	}
	n.TargetParticipantID = n.ParticipantID
	return n, nil
}

// GetNote returns one judge's note for a participant and question
func (r *Repository) GetNote(ctx context.Context, judgeID, participantID, questionID int) (*models.Note, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT judge_id, participant_id, question_id, valeur, commentaire
		FROM notes WHERE judge_id = ? AND participant_id = ? AND question_id = ?
	`, judgeID, participantID, questionID)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// notesOpen holds while the judge may still write notes for the gala.
// Arguments: judge_id, gala_id, gala_id.
const notesOpen = `NOT EXISTS (SELECT 1 FROM submissions WHERE judge_id = ? AND gala_id = ?)
	AND NOT EXISTS (SELECT 1 FROM galas WHERE id = ? AND locked = 1)`

// SaveNote upserts a note. A note with neither value nor comment is deleted,
// since it cannot be told apart from absence. The write and the check that
// the gala is neither locked nor submitted happen in one statement; a refused
// write returns ErrGalaLocked or ErrSubmitted.
func (r *Repository) SaveNote(ctx context.Context, n models.Note) error {
	var result sql.Result
	var err error
	if n.Empty() {
		result, err = r.db.ExecContext(ctx, `
			DELETE FROM notes WHERE judge_id = ? AND participant_id = ? AND question_id = ?
			AND `+notesOpen,
			n.JudgeID, n.ParticipantID, n.QuestionID, n.JudgeID, n.GalaID, n.GalaID)
	} else {
		var value sql.NullInt64
		if n.Value != nil {
			value = sql.NullInt64{Int64: int64(*n.Value), Valid: true}
		}
		var comment sql.NullString
		if n.Comment != nil {
			comment = sql.NullString{String: *n.Comment, Valid: true}
		}
		result, err = r.db.ExecContext(ctx, `
			INSERT INTO notes (judge_id, participant_id, question_id, valeur, commentaire, updated_at)
			SELECT ?, ?, ?, ?, ?, ? WHERE `+notesOpen+`
			ON CONFLICT(judge_id, participant_id, question_id) DO UPDATE SET
				valeur = excluded.valeur,
				commentaire = excluded.commentaire,
				updated_at = excluded.updated_at
		`, n.JudgeID, n.ParticipantID, n.QuestionID, value, comment, time.Now(), n.JudgeID, n.GalaID, n.GalaID)
	}
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	return r.notesClosed(ctx, n.JudgeID, n.GalaID)
}

// notesClosed tells why a note write touched no row. It returns nil when the
// gala is open, which only happens when deleting a note that was not there.
func (r *Repository) notesClosed(ctx context.Context, judgeID, galaID int) error {
	var locked, submitted bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM galas WHERE id = ? AND locked = 1),
			EXISTS (SELECT 1 FROM submissions WHERE judge_id = ? AND gala_id = ?)
	`, galaID, judgeID, galaID).Scan(&locked, &submitted)
	if err != nil {
		return err
	}
	switch {
	case locked:
		return ErrGalaLocked
	case submitted:
		return ErrSubmitted
	}
	return nil
}

// ListNotes returns a judge's notes for the given participants, keyed by
// participant then question
func (r *Repository) ListNotes(ctx context.Context, judgeID int, participantIDs []int) (map[int]map[int]models.Note, error) {
	notes := make(map[int]map[int]models.Note)
	if len(participantIDs) == 0 {
		return notes, nil
	}

	args := make([]interface{}, 0, len(participantIDs)+1)
	args = append(args, judgeID)
	for _, id := range participantIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT judge_id, participant_id, question_id, valeur, commentaire
		FROM notes WHERE judge_id = ? AND participant_id IN (`+placeholders(len(participantIDs))+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		if notes[n.ParticipantID] == nil {
			notes[n.ParticipantID] = make(map[int]models.Note)
		}
		notes[n.ParticipantID][n.QuestionID] = n
	}
	return notes, rows.Err()
}

// ==================== Favorite Methods ====================

// GetFavorite returns the judge's favorite participant in a category
func (r *Repository) GetFavorite(ctx context.Context, judgeID, categoryID int) (int, bool, error) {
	var participantID int
	err := r.db.QueryRowContext(ctx, `
		SELECT participant_id FROM favorites WHERE judge_id = ? AND gala_categorie_id = ?
	`, judgeID, categoryID).Scan(&participantID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return participantID, true, nil
}

// SetFavorite makes the participant the judge's favorite in the category,
// replacing any previous one
func (r *Repository) SetFavorite(ctx context.Context, judgeID, categoryID, participantID int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO favorites (judge_id, gala_categorie_id, participant_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(judge_id, gala_categorie_id) DO UPDATE SET
			participant_id = excluded.participant_id,
			created_at = excluded.created_at
	`, judgeID, categoryID, participantID, time.Now())
	return err
}

// ClearFavorite removes the judge's favorite in the category if it is the
// given participant
func (r *Repository) ClearFavorite(ctx context.Context, judgeID, categoryID, participantID int) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM favorites WHERE judge_id = ? AND gala_categorie_id = ? AND participant_id = ?
	`, judgeID, categoryID, participantID)
	return err
}

// ==================== Submission Methods ====================

// GetSubmission returns the judge's submission for a gala
func (r *Repository) GetSubmission(ctx context.Context, judgeID, galaID int) (*models.Submission, error) {
	s := models.Submission{JudgeID: judgeID, GalaID: galaID}
	err := r.db.QueryRowContext(ctx, `
		SELECT submitted_at FROM submissions WHERE judge_id = ? AND gala_id = ?
	`, judgeID, galaID).Scan(&s.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Submitted = true
	return &s, nil
}

// CreateSubmission records a judge's submission. It returns ErrDuplicate if
// the judge already submitted the gala.
func (r *Repository) CreateSubmission(ctx context.Context, judgeID, galaID int, submittedAt string) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO submissions (judge_id, gala_id, submitted_at) VALUES (?, ?, ?)
	`, judgeID, galaID, submittedAt)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// DeleteSubmission reopens a judge's evaluations for a gala
func (r *Repository) DeleteSubmission(ctx context.Context, judgeID, galaID int) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM submissions WHERE judge_id = ? AND gala_id = ?
	`, judgeID, galaID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ListSubmissions returns every judge assigned to the gala with their
// submission state, ordered by judge name
func (r *Repository) ListSubmissions(ctx context.Context, galaID int) ([]models.Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT j.id, j.nom, s.submitted_at
		FROM judges j
		LEFT JOIN submissions s ON s.judge_id = j.id AND s.gala_id = ?
		WHERE j.id IN (
			SELECT ja.judge_id FROM judge_assignments ja
			JOIN gala_categories gc ON gc.id = ja.gala_categorie_id
			WHERE gc.gala_id = ?
		)
		ORDER BY j.nom, j.id
	`, galaID, galaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []models.Submission
	for rows.Next() {
		s := models.Submission{GalaID: galaID}
		var at sql.NullString
		if err := rows.Scan(&s.JudgeID, &s.JudgeName, &at); err != nil {
			return nil, err
		}
		s.Submitted = at.Valid
		s.SubmittedAt = at.String
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

// ==================== Judge Methods ====================

// CreateJudge creates a judge with an access code
func (r *Repository) CreateJudge(ctx context.Context, name, accessCode string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `INSERT INTO judges (nom, access_code) VALUES (?, ?)`, name, accessCode)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (r *Repository) getJudge(ctx context.Context, where string, arg interface{}) (*models.Judge, error) {
	var j models.Judge
	err := r.db.QueryRowContext(ctx, `SELECT id, nom, access_code FROM judges WHERE `+where+` = ?`, arg).
		Scan(&j.ID, &j.Name, &j.AccessCode)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJudge returns a judge by ID
func (r *Repository) GetJudge(ctx context.Context, judgeID int) (*models.Judge, error) {
	return r.getJudge(ctx, "id", judgeID)
}

// GetJudgeByAccessCode returns the judge owning an access code
func (r *Repository) GetJudgeByAccessCode(ctx context.Context, code string) (*models.Judge, error) {
	return r.getJudge(ctx, "access_code", code)
}

// ListJudges returns every judge ordered by name
func (r *Repository) ListJudges(ctx context.Context) ([]models.Judge, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, nom, access_code FROM judges ORDER BY nom, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var judges []models.Judge
	for rows.Next() {
		var j models.Judge
		if err := rows.Scan(&j.ID, &j.Name, &j.AccessCode); err != nil {
			return nil, err
		}
		judges = append(judges, j)
	}
	return judges, rows.Err()
}

// SetJudgeAccessCode replaces a judge's access code
func (r *Repository) SetJudgeAccessCode(ctx context.Context, judgeID int, code string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE judges SET access_code = ? WHERE id = ?`, code, judgeID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// ==================== Database Management Methods ====================

// validTables defines which tables can be safely cleared, children first
var validTables = map[string]bool{
	"notes": true, "favorites": true, "submissions": true, "responses": true,
	"judge_assignments": true, "judges": true, "questions": true, "participants": true,
	"companies": true, "gala_categories": true, "galas": true, "settings": true,
}

// ClearTable clears all data from a table
// Only allows clearing whitelisted tables to prevent SQL injection
func (r *Repository) ClearTable(ctx context.Context, table string) error {
	if !validTables[table] {
		return ErrInvalidTable
	}
	_, err := r.db.ExecContext(ctx, "DELETE FROM "+table)
	return err
}

// CountGalas returns the number of galas, used to decide whether to seed
func (r *Repository) CountGalas(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM galas`).Scan(&count)
	return count, err
}
