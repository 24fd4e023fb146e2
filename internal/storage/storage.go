// storage.go - Report persistence interface and backend selection

package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bosocmputer/degradation_inspector/configs"
)

// ErrReportNotFound is returned by Get when no report has the requested ID
var ErrReportNotFound = errors.New("report not found")

// ReportRecord is one completed inspection
type ReportRecord struct {
	RequestID           string    `bson:"request_id" json:"request_id" gorm:"primaryKey;size:64"`
	ImagePath           string    `bson:"image_path" json:"image_path"`
	OriginalName        string    `bson:"original_name" json:"original_name,omitempty"`
	AnalysisResult      string    `bson:"analysis_result" json:"analysis_result" gorm:"type:text"`
	FinalReport         string    `bson:"final_report" json:"final_report" gorm:"type:text"`
	DegradationDetected bool      `bson:"degradation_detected" json:"degradation_detected" gorm:"index"`
	Model               string    `bson:"model" json:"model"`
	Source              string    `bson:"source" json:"source"`
	DurationMS          int64     `bson:"duration_ms" json:"duration_ms"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at" gorm:"index"`
}

// TableName keeps the SQL table aligned with the Mongo collection
func (ReportRecord) TableName() string { return reportCollection }

const reportCollection = "degradation_reports"

// ReportStore persists inspection reports
type ReportStore interface {
	Save(ctx context.Context, record *ReportRecord) error
	Get(ctx context.Context, requestID string) (*ReportRecord, error)
	List(ctx context.Context, limit int) ([]ReportRecord, error)
	Close() error
}

// NopStore discards reports; used when no database is configured
type NopStore struct{}

func (NopStore) Save(ctx context.Context, record *ReportRecord) error { return nil }

func (NopStore) Get(ctx context.Context, requestID string) (*ReportRecord, error) {
	return nil, ErrReportNotFound
}

func (NopStore) List(ctx context.Context, limit int) ([]ReportRecord, error) { return nil, nil }

func (NopStore) Close() error { return nil }

// OpenFromConfig picks MongoDB, then DATABASE_URL, then NopStore, and wraps the result in a read cache
func OpenFromConfig(ctx context.Context) (ReportStore, error) {
	var store ReportStore

	switch {
	case configs.MONGO_URI != "":
		mongoStore, err := NewMongoStore(ctx, configs.MONGO_URI, configs.MONGO_DB_NAME)
		if err != nil {
			return nil, err
		}
		store = mongoStore

	case configs.DATABASE_URL != "":
		sqlStore, err := NewSQLStore(configs.DATABASE_URL)
		if err != nil {
			return nil, err
		}
		store = sqlStore

	default:
		log.Println("ℹ️  No MONGO_URI or DATABASE_URL set, reports will not be persisted")
		return NopStore{}, nil
	}

	return NewCachedStore(store, configs.REPORT_CACHE_TTL), nil
}
