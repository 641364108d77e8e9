package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/matzehuels/skillindex/pkg/skill"
)

// Dialect names a gorm-backed SQL database.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// skillRow is the gorm model of a record.
type skillRow struct {
	RepoURL       string   `gorm:"column:repo_url;primaryKey;size:512"`
	Name          string   `gorm:"not null"`
	Description   string   `gorm:"type:text"`
	Author        string   `gorm:"size:255"`
	QualityScore  float64  `gorm:"not null;default:0"`
	TrustTier     string   `gorm:"size:32;index"`
	Tags          []string `gorm:"serializer:json;type:text"`
	Categories    []string `gorm:"serializer:json;type:text"`
	Stars         int
	Installable   bool
	LastIndexedAt time.Time
}

func (skillRow) TableName() string { return SkillsTable }

// auditRow is the gorm model of an audit entry.
type auditRow struct {
	ID                string   `gorm:"primaryKey;size:64"`
	RunID             string   `gorm:"size:64;index"`
	Topics            []string `gorm:"serializer:json;type:text"`
	Found             int
	Indexed           int
	Updated           int
	Failed            int
	ScoreDistribution map[string]int `gorm:"serializer:json;type:text"`
	CategoryCounts    map[string]int `gorm:"serializer:json;type:text"`
	CreatedAt         time.Time
}

func (auditRow) TableName() string { return AuditTable }

// SQLStore stores records through gorm on SQLite or MySQL.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQL opens a SQLite file or MySQL database. For MySQL, dsn is in
// go-sql-driver form (user:pass@tcp(host:3306)/db); parseTime is enabled
// if absent.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectMySQL:
		dialector = mysql.Open(withParseTime(dsn))
	case DialectSQLite:
		if dsn == "" {
			return nil, fmt.Errorf("sqlite: database path is required")
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := ping(ctx, sqlDB.PingContext); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Lookup(ctx context.Context, urls []string) (map[string]skill.Record, error) {
	out := make(map[string]skill.Record)
	urls = dedupURLs(urls)
	if len(urls) == 0 {
		return out, nil
	}
	var rows []skillRow
	if err := s.db.WithContext(ctx).Where("repo_url IN ?", urls).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.RepoURL] = skill.Record{
			Name:          r.Name,
			Description:   r.Description,
			Author:        r.Author,
			RepoURL:       r.RepoURL,
			QualityScore:  r.QualityScore,
			TrustTier:     skill.Tier(r.TrustTier),
			Tags:          r.Tags,
			Categories:    toCategories(r.Categories),
			Stars:         r.Stars,
			Installable:   r.Installable,
			LastIndexedAt: r.LastIndexedAt,
		}
	}
	return out, nil
}

func (s *SQLStore) Upsert(ctx context.Context, rec skill.Record) error {
	row := skillRow{
		RepoURL:       rec.RepoURL,
		Name:          rec.Name,
		Description:   rec.Description,
		Author:        rec.Author,
		QualityScore:  rec.QualityScore,
		TrustTier:     string(rec.TrustTier),
		Tags:          emptyIfNil(rec.Tags),
		Categories:    fromCategories(rec.Categories),
		Stars:         rec.Stars,
		Installable:   rec.Installable,
		LastIndexedAt: rec.LastIndexedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repo_url"}},
		UpdateAll: true,
	}).Create(&row).Error
}

func (s *SQLStore) AppendAudit(ctx context.Context, e skill.AuditEntry) error {
	counts := make(map[string]int, len(e.CategoryCounts))
	for c, n := range e.CategoryCounts {
		counts[string(c)] = n
	}
	row := auditRow{
		ID:                e.ID,
		RunID:             e.RunID,
		Topics:            emptyIfNil(e.Topics),
		Found:             e.Found,
		Indexed:           e.Indexed,
		Updated:           e.Updated,
		Failed:            e.Failed,
		ScoreDistribution: e.ScoreDistribution,
		CategoryCounts:    counts,
		CreatedAt:         e.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// Migrate runs gorm auto-migration for both tables.
func (s *SQLStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&skillRow{}, &auditRow{})
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}
