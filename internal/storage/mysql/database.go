// Package mysql 提供分析紀錄的 MySQL 儲存層。
package mysql

import (
	"Youtube-Monster/internal/config"
	"Youtube-Monster/internal/models"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore 結構
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 建立資料庫連線並驗證可用性。
func NewMySQLStore(dbCfg config.DatabaseConfig) (*MySQLStore, error) {
	if dbCfg.Driver != "mysql" {
		return nil, fmt.Errorf("不支援的資料庫驅動程式: %s", dbCfg.Driver)
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local", dbCfg.User, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.DBName)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("開啟資料庫連線失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("無法連線到資料庫 (ping 失敗): %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	log.Println("資訊：成功連線到 MySQL 資料庫。")
	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Close() error {
	if s.db != nil {
		log.Println("資訊：正在關閉 MySQL 資料庫連線...")
		return s.db.Close()
	}
	return nil
}

const analysisColumns = `id, video_id, extraction_method, segment_count, events, sensitivity,
	duration_secs, score_kind, score_value, status, error_message, created_at`

// SaveAnalysis 寫入一筆分析紀錄，回傳新紀錄的 ID。
func (s *MySQLStore) SaveAnalysis(record *models.AnalysisRecord) (int64, error) {
	if record == nil || record.VideoID == "" {
		return 0, fmt.Errorf("無效的分析紀錄或 VideoID 為空")
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var events interface{}
	if len(record.Events) > 0 {
		events = []byte(record.Events)
	}
	query := `
		INSERT INTO analyses (
			video_id, extraction_method, segment_count, events, sensitivity,
			duration_secs, score_kind, score_value, status, error_message, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	res, err := s.db.Exec(query,
		record.VideoID,
		record.ExtractionMethod,
		record.SegmentCount,
		events,
		record.Sensitivity,
		record.DurationSec,
		record.ScoreKind,
		record.ScoreValue,
		record.Status,
		record.ErrorMessage,
		createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("儲存分析紀錄到資料庫失敗 (VideoID: %s): %w", record.VideoID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("獲取新插入分析紀錄的 ID 失敗 (VideoID: %s): %w", record.VideoID, err)
	}
	log.Printf("資訊：分析紀錄成功儲存到資料庫 (ID: %d, VideoID: %s, 狀態: %s)\n", id, record.VideoID, record.Status)
	return id, nil
}

// scanAnalysisRows 掃描查詢結果集為紀錄清單。
func scanAnalysisRows(rows *sql.Rows) ([]models.AnalysisRecord, error) {
	var records []models.AnalysisRecord
	for rows.Next() {
		var r models.AnalysisRecord
		var eventsSQL sql.RawBytes
		var errorMessageSQL sql.NullString
		err := rows.Scan(
			&r.ID, &r.VideoID, &r.ExtractionMethod, &r.SegmentCount, &eventsSQL, &r.Sensitivity,
			&r.DurationSec, &r.ScoreKind, &r.ScoreValue, &r.Status, &errorMessageSQL, &r.CreatedAt,
		)
		if err != nil {
			log.Printf("錯誤：掃描分析紀錄查詢結果行失敗: %v", err)
			continue
		}
		if eventsSQL != nil {
			r.Events = append([]byte(nil), eventsSQL...)
		}
		r.ErrorMessage = models.JsonNullString{NullString: errorMessageSQL}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("處理分析紀錄查詢結果集時發生錯誤: %w", err)
	}
	return records, nil
}

// GetRecentAnalyses 取得最近的分析紀錄，供查詢介面使用。
func (s *MySQLStore) GetRecentAnalyses(limit int) ([]models.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM analyses ORDER BY created_at DESC, id DESC LIMIT ?;`, analysisColumns)
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("查詢最近分析紀錄失敗: %w", err)
	}
	defer rows.Close()
	records, err := scanAnalysisRows(rows)
	if err != nil {
		return nil, err
	}
	log.Printf("資訊：查詢到 %d 筆最近的分析紀錄。\n", len(records))
	return records, nil
}

// GetAnalysesByVideoID 取得指定影片的歷史分析紀錄。
func (s *MySQLStore) GetAnalysesByVideoID(videoID string, limit int) ([]models.AnalysisRecord, error) {
	if videoID == "" {
		return nil, fmt.Errorf("無效的 VideoID")
	}
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM analyses WHERE video_id = ? ORDER BY created_at DESC, id DESC LIMIT ?;`, analysisColumns)
	rows, err := s.db.Query(query, videoID, limit)
	if err != nil {
		return nil, fmt.Errorf("查詢影片 %s 的分析紀錄失敗: %w", videoID, err)
	}
	defer rows.Close()
	return scanAnalysisRows(rows)
}

// GetFailedAnalyses 取得等待重試的失敗紀錄（由舊到新）。
func (s *MySQLStore) GetFailedAnalyses(limit int) ([]models.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM analyses WHERE status = ? ORDER BY created_at ASC LIMIT ?;`, analysisColumns)
	rows, err := s.db.Query(query, models.StatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("查詢失敗分析紀錄失敗: %w", err)
	}
	defer rows.Close()
	records, err := scanAnalysisRows(rows)
	if err != nil {
		return nil, err
	}
	log.Printf("資訊：查詢到 %d 筆等待重試的失敗紀錄。\n", len(records))
	return records, nil
}

// UpdateAnalysisStatus 更新單筆紀錄的狀態。
func (s *MySQLStore) UpdateAnalysisStatus(id int64, status models.AnalysisStatus) error {
	if id == 0 {
		return fmt.Errorf("無效的分析紀錄 ID")
	}
	query := "UPDATE analyses SET status = ? WHERE id = ?"
	res, err := s.db.Exec(query, status, id)
	if err != nil {
		return fmt.Errorf("更新分析紀錄狀態失敗 (ID: %d, Status: %s): %w", id, status, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("找不到要更新的分析紀錄 (ID: %d)", id)
	}
	log.Printf("資訊：分析紀錄狀態成功更新 (ID: %d, Status: %s)\n", id, status)
	return nil
}
