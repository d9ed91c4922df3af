package session

import (
	"net"
	"testing"
	"time"

	"github.com/wfunc/partyroom/models"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	sent [][]byte
}

func (m *MockConnection) Send(data []byte) error {
	m.sent = append(m.sent, data)
	return nil
}
func (m *MockConnection) ReadMessage() ([]byte, error)        { return nil, nil }
func (m *MockConnection) Close() error                        { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration) {}

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	// Test Add
	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	// Test Get
	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	// Test Remove
	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_InRoom(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	sess1.Attach("ABCD", "player_1", models.RoleHost)

	sess2 := NewSession("session2", &MockConnection{})
	sess2.Attach("WXYZ", "player_2", models.RoleHost)

	sess3 := NewSession("session3", &MockConnection{})
	sess3.CreatedAt = sess1.CreatedAt.Add(time.Second)
	sess3.Attach("ABCD", "player_3", models.RoleGuest)

	sess4 := NewSession("session4", &MockConnection{})

	manager.Add(sess1)
	manager.Add(sess2)
	manager.Add(sess3)
	manager.Add(sess4)

	inABCD := manager.InRoom("ABCD")
	if len(inABCD) != 2 {
		t.Fatalf("Expected 2 sessions in ABCD, got %d", len(inABCD))
	}
	if inABCD[0] != sess1 || inABCD[1] != sess3 {
		t.Error("InRoom should order sessions by creation time")
	}

	if got := len(manager.InRoom("WXYZ")); got != 1 {
		t.Errorf("Expected 1 session in WXYZ, got %d", got)
	}
	if got := len(manager.InRoom("")); got != 0 {
		t.Errorf("Unbound sessions should never match, got %d", got)
	}

	if got := manager.BoundTo("ABCD", "player_3"); len(got) != 1 || got[0] != sess3 {
		t.Errorf("Expected BoundTo to find session3, got %v", got)
	}
	if got := manager.BoundTo("WXYZ", "player_3"); len(got) != 0 {
		t.Errorf("BoundTo should match room and player together, got %d", len(got))
	}
}

func TestSession_You(t *testing.T) {
	sess := NewSession("s", &MockConnection{})
	sess.ClientID = "client_1"

	you := sess.You()
	if you.ClientID != "client_1" || you.PlayerID != nil || you.Role != nil || you.RoomCode != nil {
		t.Fatalf("Unbound session should only carry its client id, got %+v", you)
	}

	sess.Attach("ABCD", "player_1", models.RoleGuest)
	you = sess.You()
	if you.PlayerID == nil || *you.PlayerID != "player_1" {
		t.Errorf("Expected player_1, got %v", you.PlayerID)
	}
	if you.Role == nil || *you.Role != models.RoleGuest {
		t.Errorf("Expected guest role, got %v", you.Role)
	}
	if you.RoomCode == nil || *you.RoomCode != "ABCD" {
		t.Errorf("Expected room ABCD, got %v", you.RoomCode)
	}
}

func TestSession_Send(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("s", conn)
	sess.LastActive = sess.LastActive.Add(-time.Hour)
	before := sess.LastActive

	if err := sess.Send([]byte(`{"type":"pong"}`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(conn.sent))
	}
	if !sess.LastActive.After(before) {
		t.Error("Send should refresh LastActive")
	}
}

func TestSession_Set_Get(t *testing.T) {
	sess := NewSession("test_session", &MockConnection{})
	key := "test_key"
	value := "test_value"

	sess.Set(key, value)

	retrievedValue := sess.Get(key)
	if retrievedValue != value {
		t.Errorf("Expected value %v, got %v", value, retrievedValue)
	}

	nilValue := sess.Get("non_existent_key")
	if nilValue != nil {
		t.Errorf("Expected nil for non-existent key, got %v", nilValue)
	}
}
