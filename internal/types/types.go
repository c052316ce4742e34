package types

type UserId string

type BookmarkId string
