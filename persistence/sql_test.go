package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/partyroom/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockSQLRecorder(t *testing.T) (*SQLRecorder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &SQLRecorder{db: db}, mock
}

func newMockGormRecorder(t *testing.T) (*GormRecorder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return &GormRecorder{db: gdb}, mock
}

func playersJSON(t *testing.T, res *models.GameResult) []byte {
	t.Helper()
	raw, err := json.Marshal(res.Players)
	require.NoError(t, err)
	return raw
}

func TestSQLRecorder_SaveGameResult(t *testing.T) {
	rec, mock := newMockSQLRecorder(t)
	res := win("ABCD", "p1", "green", finished)

	mock.ExpectExec(`INSERT INTO game_results \(room_code, game_id, outcome, winner_id, winner_theme, starter_id, players, final_state, finished_at\)`).
		WithArgs("ABCD", "tic_tac_toe", "win", "p1", "green", "p1", sqlmock.AnyArg(), sqlmock.AnyArg(), finished).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, rec.SaveGameResult(context.Background(), res))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRecorder_RoomHistory(t *testing.T) {
	rec, mock := newMockSQLRecorder(t)
	newest, older := draw("ABCD", finished.Add(time.Minute)), win("ABCD", "p1", "yellow", finished)

	columns := []string{"room_code", "game_id", "outcome", "winner_id", "starter_id", "players", "final_state", "finished_at"}
	mock.ExpectQuery(`FROM game_results WHERE room_code = \$1 AND deleted_at IS NULL ORDER BY finished_at DESC LIMIT \$2`).
		WithArgs("ABCD", defaultHistoryLimit).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("ABCD", "tic_tac_toe", "draw", "", "", playersJSON(t, newest), nil, newest.FinishedAt).
			AddRow("ABCD", "tic_tac_toe", "win", "p1", "p1", playersJSON(t, older), []byte(`{"board":["X"]}`), older.FinishedAt))

	history, err := rec.RoomHistory(context.Background(), "ABCD", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.OutcomeDraw, history[0].Outcome)
	assert.Nil(t, history[0].FinalState)
	assert.Equal(t, newest.Players, history[0].Players)
	assert.Equal(t, "p1", history[1].WinnerID)
	assert.Equal(t, older.FinishedAt, history[1].FinishedAt)
	raw, ok := history[1].FinalState.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"board":["X"]}`, string(raw))

	mock.ExpectQuery(`FROM game_results WHERE room_code = \$1`).
		WithArgs("WXYZ", 5).
		WillReturnRows(sqlmock.NewRows(columns))
	_, err = rec.RoomHistory(context.Background(), "WXYZ", 5)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	mock.ExpectQuery(`FROM game_results WHERE room_code = \$1`).
		WithArgs("ABCD", defaultHistoryLimit).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("ABCD", "tic_tac_toe", "draw", "", "", []byte("{broken"), nil, finished))
	_, err = rec.RoomHistory(context.Background(), "ABCD", 0)
	assert.ErrorContains(t, err, "decode players")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRecorder_GamesStats(t *testing.T) {
	rec, mock := newMockSQLRecorder(t)

	mock.ExpectQuery(`SELECT game_id, outcome, COALESCE\(winner_theme, ''\), COUNT\(\*\) FROM game_results WHERE game_id = ANY\(\$1\) AND deleted_at IS NULL GROUP BY game_id, outcome, winner_theme`).
		WithArgs(pq.Array([]string{"tic_tac_toe", "battleships"})).
		WillReturnRows(sqlmock.NewRows([]string{"game_id", "outcome", "winner_theme", "count"}).
			AddRow("tic_tac_toe", "win", "red", 2).
			AddRow("tic_tac_toe", "win", "blue", 1).
			AddRow("tic_tac_toe", "draw", "", 1).
			AddRow("chess", "win", "red", 9))

	all, err := rec.GamesStats(context.Background(), []string{"tic_tac_toe", "battleships"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "tic_tac_toe", all[0].GameID)
	assert.Equal(t, int64(4), all[0].Played)
	assert.Equal(t, int64(1), all[0].Draws)
	assert.Equal(t, map[string]int64{"red": 2, "blue": 1}, all[0].WinsByTheme)
	assert.Equal(t, "battleships", all[1].GameID)
	assert.Zero(t, all[1].Played)
	assert.Empty(t, all[1].WinsByTheme)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRecorder_GameStatsQueryError(t *testing.T) {
	rec, mock := newMockSQLRecorder(t)
	mock.ExpectQuery(`FROM game_results WHERE game_id = ANY\(\$1\)`).
		WithArgs(pq.Array([]string{"tic_tac_toe"})).
		WillReturnError(errors.New("connection reset"))

	_, err := rec.GameStats(context.Background(), "tic_tac_toe")
	assert.EqualError(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRecorder_RoomHistory(t *testing.T) {
	rec, mock := newMockGormRecorder(t)
	res := win("ABCD", "p1", "yellow", finished)

	mock.ExpectQuery(`SELECT \* FROM "game_results" WHERE room_code = \$1 AND "game_results"."deleted_at" IS NULL ORDER BY finished_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_code", "game_id", "outcome", "winner_id", "winner_theme", "starter_id", "players", "final_state", "finished_at"}).
			AddRow(1, "ABCD", "tic_tac_toe", "win", "p1", "yellow", "p1", playersJSON(t, res), []byte("null"), finished))

	history, err := rec.RoomHistory(context.Background(), "ABCD", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.OutcomeWin, history[0].Outcome)
	assert.Equal(t, res.Players, history[0].Players)
	assert.Equal(t, finished, history[0].FinishedAt)

	mock.ExpectQuery(`SELECT \* FROM "game_results" WHERE room_code = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = rec.RoomHistory(context.Background(), "WXYZ", 10)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRecorder_GameStats(t *testing.T) {
	rec, mock := newMockGormRecorder(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS played, COALESCE\(SUM\(CASE WHEN outcome = \$1 THEN 1 ELSE 0 END\), 0\) AS draws FROM "game_results" WHERE game_id = \$2`).
		WithArgs("draw", "tic_tac_toe").
		WillReturnRows(sqlmock.NewRows([]string{"played", "draws"}).AddRow(5, 2))
	mock.ExpectQuery(`SELECT winner_theme, COUNT\(\*\) AS wins FROM "game_results" WHERE .*game_id = \$1 AND outcome = \$2.*GROUP BY .*winner_theme`).
		WithArgs("tic_tac_toe", "win").
		WillReturnRows(sqlmock.NewRows([]string{"winner_theme", "wins"}).AddRow("red", 2).AddRow("green", 1))

	stats, err := rec.GameStats(context.Background(), "tic_tac_toe")
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Played)
	assert.Equal(t, int64(2), stats.Draws)
	assert.Equal(t, map[string]int64{"red": 2, "green": 1}, stats.WinsByTheme)
	assert.NoError(t, mock.ExpectationsWereMet())
}
