package dto

import "time"

type SearchRequest struct {
	OrganizerID    int64     `json:"organizer_id" validate:"required,gt=0"`
	ParticipantIDs []int64   `json:"participant_ids" validate:"max=500,dive,gt=0"`
	NumRooms       int       `json:"num_rooms" validate:"required,min=1,max=50"`
	Facilities     []string  `json:"facilities" validate:"max=4,dive,oneof=N/A AV VC AV/VC"`
	Start          time.Time `json:"start"`
	LengthMinutes  int       `json:"length_minutes" validate:"required,min=1,max=1440"`
}

type RoomResponse struct {
	RoomID         int64   `json:"room_id"`
	Name           string  `json:"name"`
	RoomNumber     string  `json:"room_number"`
	CityID         int64   `json:"city_id"`
	BuildingNumber int     `json:"building_number"`
	Floor          int     `json:"floor"`
	Capacity       int     `json:"capacity"`
	Facility       string  `json:"facility"`
	Active         bool    `json:"active"`
	AvgDistance    float64 `json:"avg_distance"`
}

type ClusterResponse struct {
	Cluster           int            `json:"cluster"`
	ParticipantIDs    []int64        `json:"participant_ids"`
	Emails            []string       `json:"emails"`
	BuildingNumber    int            `json:"building_number"`
	OptimalFloor      int            `json:"optimal_floor"`
	OptimalRooms      []RoomResponse `json:"optimal_rooms"`
	AllAvailableRooms []RoomResponse `json:"all_available_rooms"`
}

type SearchResponse struct {
	NumRooms         int               `json:"num_rooms"`
	Facilities       []string          `json:"facilities"`
	Clusters         []ClusterResponse `json:"clusters"`
	ClusterGroups    [][]string        `json:"cluster_groups"`
	UnavailableRooms []RoomResponse    `json:"unavailable_rooms"`
}
