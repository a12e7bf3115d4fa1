package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Card image validation errors
var (
	// ErrEmptyImageID is returned when an image ID is empty or nil.
	ErrEmptyImageID = errors.New("image ID cannot be empty")

	// ErrEmptyImageCardID is returned when an image's card ID is empty or nil.
	ErrEmptyImageCardID = errors.New("image card ID cannot be empty")

	// ErrEmptyImageFilename is returned when an image filename is empty.
	ErrEmptyImageFilename = errors.New("image filename cannot be empty")
)

// CardImage references one stored image attached to a card. The bytes
// live in the media store under StoredFilename; rows are references only
// and are removed together with the owning session.
type CardImage struct {
	ID               uuid.UUID `json:"id"`
	CardID           uuid.UUID `json:"card_id"`
	SessionID        uuid.UUID `json:"session_id"`
	OriginalFilename string    `json:"original_filename"`
	StoredFilename   string    `json:"stored_filename"`
	MediaType        string    `json:"media_type"`
	FileSize         int64     `json:"file_size"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewCardImage creates an image reference for the given card.
func NewCardImage(
	cardID, sessionID uuid.UUID,
	originalFilename, storedFilename, mediaType string,
	fileSize int64,
) (*CardImage, error) {
	image := &CardImage{
		ID:               uuid.New(),
		CardID:           cardID,
		SessionID:        sessionID,
		OriginalFilename: originalFilename,
		StoredFilename:   storedFilename,
		MediaType:        mediaType,
		FileSize:         fileSize,
		CreatedAt:        time.Now().UTC(),
	}

	if err := image.Validate(); err != nil {
		return nil, err
	}

	return image, nil
}

// Validate checks if the CardImage has valid data.
func (i *CardImage) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyImageID
	}

	if i.CardID == uuid.Nil {
		return ErrEmptyImageCardID
	}

	if i.SessionID == uuid.Nil {
		return ErrEmptySessionID
	}

	if i.OriginalFilename == "" || i.StoredFilename == "" {
		return ErrEmptyImageFilename
	}

	return nil
}
