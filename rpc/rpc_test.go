package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/rpc"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/partyroom/models"
)

type fakeDirectory struct{}

func (fakeDirectory) RoomSummaries() []models.RoomSummary {
	return []models.RoomSummary{{Code: "ABCD", Players: 2, Connected: 1, Status: "playing", CreatedAt: time.Unix(0, 0).UTC(), UpdatedAt: time.Unix(60, 0).UTC()}}
}

func (fakeDirectory) PreviewRoom(code string) (models.PreviewView, error) {
	if code != "ABCD" {
		return models.PreviewView{}, errors.New("Room not found.")
	}
	return models.PreviewView{Code: "ABCD", IsFull: true, TakenThemes: []string{"red", "blue"}}, nil
}

type fakeResults struct {
	lastCode  string
	lastLimit int
}

func (*fakeResults) GameStats(_ context.Context, gameID string) (*models.GameStats, error) {
	return &models.GameStats{GameID: gameID, Played: 3, Draws: 1, WinsByTheme: map[string]int64{"red": 2}}, nil
}

func (f *fakeResults) RoomHistory(_ context.Context, roomCode string, limit int) ([]models.GameResult, error) {
	f.lastCode, f.lastLimit = roomCode, limit
	if roomCode != "ABCD" {
		return nil, errors.New("record not found")
	}
	return []models.GameResult{
		{RoomCode: "ABCD", GameID: "tic_tac_toe", Outcome: models.OutcomeDraw, FinalState: map[string]any{"moves": 9}},
		{RoomCode: "ABCD", GameID: "tic_tac_toe", Outcome: models.OutcomeWin, WinnerID: "p1"},
	}, nil
}

func startServer(t *testing.T) *rpc.Client {
	t.Helper()
	return startServerWith(t, &fakeResults{})
}

func startServerWith(t *testing.T, results *fakeResults) *rpc.Client {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, srv.Register("LobbyService", NewLobbyService(fakeDirectory{}, results)))
	go srv.Start()
	t.Cleanup(srv.Stop)

	client, err := rpc.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestLobbyService_ListRooms(t *testing.T) {
	client := startServer(t)

	var reply ListRoomsReply
	require.NoError(t, client.Call("LobbyService.ListRooms", &ListRoomsArgs{}, &reply))
	require.Len(t, reply.Rooms, 1)
	assert.Equal(t, "ABCD", reply.Rooms[0].Code)
	assert.Equal(t, 1, reply.Rooms[0].Connected)
}

func TestLobbyService_PreviewRoom(t *testing.T) {
	client := startServer(t)

	var reply PreviewRoomReply
	require.NoError(t, client.Call("LobbyService.PreviewRoom", &PreviewRoomArgs{Code: "ABCD"}, &reply))
	assert.True(t, reply.Room.IsFull)
	assert.Equal(t, []string{"red", "blue"}, reply.Room.TakenThemes)

	err := client.Call("LobbyService.PreviewRoom", &PreviewRoomArgs{Code: "NOPE"}, &PreviewRoomReply{})
	require.Error(t, err)
	assert.Equal(t, "Room not found.", err.Error())
}

func TestLobbyService_GameStats(t *testing.T) {
	client := startServer(t)

	var reply GameStatsReply
	require.NoError(t, client.Call("LobbyService.GameStats", &GameStatsArgs{GameID: "tic_tac_toe"}, &reply))
	assert.Equal(t, "tic_tac_toe", reply.Stats.GameID)
	assert.Equal(t, int64(3), reply.Stats.Played)
	assert.Equal(t, int64(2), reply.Stats.WinsByTheme["red"])
}

func TestLobbyService_RoomHistory(t *testing.T) {
	results := &fakeResults{}
	client := startServerWith(t, results)

	var reply RoomHistoryReply
	require.NoError(t, client.Call("LobbyService.RoomHistory", &RoomHistoryArgs{Code: " abcd "}, &reply))
	require.Len(t, reply.Results, 2)
	assert.Equal(t, models.OutcomeDraw, reply.Results[0].Outcome)
	assert.JSONEq(t, `{"moves":9}`, string(reply.Results[0].FinalState.(json.RawMessage)))
	assert.Equal(t, "null", string(reply.Results[1].FinalState.(json.RawMessage)))
	assert.Equal(t, "ABCD", results.lastCode)
	assert.Equal(t, defaultHistoryLimit, results.lastLimit)

	require.NoError(t, client.Call("LobbyService.RoomHistory", &RoomHistoryArgs{Code: "ABCD", Limit: 1000}, &RoomHistoryReply{}))
	assert.Equal(t, maxHistoryLimit, results.lastLimit)

	err := client.Call("LobbyService.RoomHistory", &RoomHistoryArgs{Code: "WXYZ", Limit: 5}, &RoomHistoryReply{})
	require.Error(t, err)
	assert.Equal(t, 5, results.lastLimit)
}
