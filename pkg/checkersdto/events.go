package checkersdto

// Outbound event names.
const (
	EventRoomCreated         = "room_created"
	EventRoomsList           = "rooms_list"
	EventGameJoined          = "game_joined"
	EventGameUpdate          = "game_update"
	EventGameEnded           = "game_ended"
	EventPlayerJoined        = "playerJoined"
	EventPlayerLeft          = "playerLeft"
	EventRoomDeleted         = "roomDeleted"
	EventGameError           = "game_error"
	EventConnectionConfirmed = "connection_confirmed"
)

// Inbound event names.
const (
	EventCreateRoom      = "create_room"
	EventJoinGame        = "join_game"
	EventMakeMove        = "make_move"
	EventLeaveRoom       = "leave_room"
	EventGetRooms        = "get_rooms"
	EventCheckConnection = "check_connection"
)
