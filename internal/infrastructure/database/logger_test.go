package database

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func captureLog(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestLogger_Trace(t *testing.T) {
	sql := func() (string, int64) { return `UPDATE "Listings" SET current_price = 120`, 1 }
	ctx := context.Background()

	cases := []struct {
		name  string
		begin time.Time
		err   error
		want  string
	}{
		{"fast statement is quiet", time.Now(), nil, ""},
		{"not found is quiet", time.Now(), gorm.ErrRecordNotFound, ""},
		{"slow statement warns", time.Now().Add(-time.Second), nil, `"level":"warn"`},
		{"failure is an error", time.Now(), errors.New("deadlock detected"), `"level":"error"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLog(t)
			NewLogger(SlowQueryThreshold).Trace(ctx, tc.begin, sql, tc.err)
			if tc.want == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tc.want)
			assert.Contains(t, buf.String(), "current_price")
		})
	}
}

func TestLogger_Silent(t *testing.T) {
	buf := captureLog(t)
	l := NewLogger(SlowQueryThreshold).LogMode(gormlogger.Silent)
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, errors.New("boom"))
	assert.Empty(t, buf.String())
}
