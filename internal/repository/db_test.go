package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 每张被仓库读写的表都要有建表语句
func TestCoreSchemaCoversAllTables(t *testing.T) {
	schema := strings.Join(coreSchema, "\n")
	for _, table := range []string{"users", "user_media", "query_logs", "trending_keywords"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table, table)
	}
}

// upsert 的 ON CONFLICT 目标必须与表约束一致，否则写入时报错
func TestCoreSchemaMatchesUpsertTargets(t *testing.T) {
	var userMediaDDL, trendingDDL string
	for _, stmt := range coreSchema {
		if strings.Contains(stmt, "user_media") {
			userMediaDDL = stmt
		}
		if strings.Contains(stmt, "trending_keywords") {
			trendingDDL = stmt
		}
	}
	require.NotEmpty(t, userMediaDDL)
	require.NotEmpty(t, trendingDDL)

	// UserMediaRepository.Add: ON CONFLICT (user_id, media_type, media_id, list_type)
	assert.Contains(t, userMediaDDL, "UNIQUE (user_id, media_type, media_id, list_type)")
	// QueryLogRepository.Log: ON CONFLICT (keyword)
	assert.Contains(t, trendingDDL, "keyword TEXT PRIMARY KEY")
}
