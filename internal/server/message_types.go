package server

// MessageType identifies a WebSocket message on the wire.
type MessageType string

const (
	// Client to server messages
	MessageTypeAuth        MessageType = "auth"
	MessageTypeCreateTable MessageType = "create_table"
	MessageTypeJoinTable   MessageType = "join_table"
	MessageTypeLeaveTable  MessageType = "leave_table"
	MessageTypeListTables  MessageType = "list_tables"
	MessageTypePlaceBet    MessageType = "place_bet"
	MessageTypePlayerMove  MessageType = "player_move"
	MessageTypeInsurance   MessageType = "insurance"

	// Server to client messages
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeTableCreated MessageType = "table_created"
	MessageTypeTableJoined  MessageType = "table_joined"
	MessageTypeTableLeft    MessageType = "table_left"
	MessageTypeTableList    MessageType = "table_list"
	MessageTypeGameState    MessageType = "game_state"
	MessageTypeRoundResult  MessageType = "round_result"
	MessageTypeStateRestore MessageType = "state_restore"
	MessageTypeError        MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
