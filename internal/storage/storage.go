package storage

import (
	"context"
	"errors"
	"fmt"

	"roomchat/backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrRoomNotFound  = errors.New("chat room not found")
	ErrAlreadyMember = errors.New("user is already a member of this chat room")
	ErrNotMember     = errors.New("user is not a member of this chat room")
	ErrEmailTaken    = errors.New("email already registered")
)

// Storage is everything the application persists.
type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)

	ListRooms(ctx context.Context) ([]models.ChatRoom, error)
	CreateRoom(ctx context.Context, name string, creatorID uint) (*models.ChatRoom, error)
	FindRoom(ctx context.Context, roomID uint) (*models.ChatRoom, error)
	GetRoomDetail(ctx context.Context, roomID uint) (*models.RoomDetail, error)

	IsMember(ctx context.Context, roomID, userID uint) (bool, error)
	JoinRoom(ctx context.Context, roomID, userID uint) error
	RemoveMember(ctx context.Context, roomID, userID uint) error

	StoreMessage(ctx context.Context, roomID, userID uint, text string) (*models.Message, error)
	ListMessages(ctx context.Context, roomID uint, limit int) ([]models.Message, error)
}

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// CreateUser inserts a new user. A duplicate email yields ErrEmailTaken.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	existing, err := s.GetUserByEmail(ctx, user.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if existing != nil {
		return ErrEmailTaken
	}

	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	return nil
}

// GetUserByEmail looks a user up by (normalised) email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListRooms returns every room, oldest first.
func (s *Service) ListRooms(ctx context.Context) ([]models.ChatRoom, error) {
	rooms := []models.ChatRoom{}
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// CreateRoom inserts the room and makes the creator its first member in
// one transaction.
func (s *Service) CreateRoom(ctx context.Context, name string, creatorID uint) (*models.ChatRoom, error) {
	room := models.ChatRoom{Name: name}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		return tx.Create(&models.RoomUser{RoomID: room.ID, UserID: creatorID}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create room %q: %w", name, err)
	}
	return &room, nil
}

// FindRoom returns ErrRoomNotFound when the room does not exist.
func (s *Service) FindRoom(ctx context.Context, roomID uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.WithContext(ctx).First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetRoomDetail loads the room together with its members and its full
// message history (oldest first).
func (s *Service) GetRoomDetail(ctx context.Context, roomID uint) (*models.RoomDetail, error) {
	room, err := s.FindRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var users []models.User
	err = s.DB.WithContext(ctx).
		Joins("JOIN room_users ON room_users.user_id = users.id").
		Where("room_users.room_id = ?", roomID).
		Order("room_users.joined_at asc, users.id asc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	messages := []models.Message{}
	err = s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at asc, id asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	detail := &models.RoomDetail{
		ChatRoom: *room,
		Users:    make([]models.UserInfo, 0, len(users)),
		Messages: messages,
	}
	for _, u := range users {
		detail.Users = append(detail.Users, u.Info())
	}
	return detail, nil
}

func (s *Service) IsMember(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.RoomUser{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// JoinRoom adds the user to the room. The room must exist.
func (s *Service) JoinRoom(ctx context.Context, roomID, userID uint) error {
	if _, err := s.FindRoom(ctx, roomID); err != nil {
		return err
	}

	member, err := s.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if member {
		return ErrAlreadyMember
	}

	return s.addMember(ctx, roomID, userID)
}

// addMember inserts the membership row. A concurrent join that won the race
// shows up as a primary key violation.
func (s *Service) addMember(ctx context.Context, roomID, userID uint) error {
	err := s.DB.WithContext(ctx).Create(&models.RoomUser{RoomID: roomID, UserID: userID}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyMember
	}
	return err
}

// RemoveMember deletes the membership row; ErrNotMember when there is none.
func (s *Service) RemoveMember(ctx context.Context, roomID, userID uint) error {
	result := s.DB.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.RoomUser{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotMember
	}
	return nil
}

// StoreMessage inserts a message row and returns it with its generated id
// and timestamp.
func (s *Service) StoreMessage(ctx context.Context, roomID, userID uint, text string) (*models.Message, error) {
	msg := models.Message{
		Text:     text,
		SenderID: userID,
		RoomID:   roomID,
	}

	if err := s.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save message for room %d: %w", roomID, err)
	}
	return &msg, nil
}

// ListMessages returns up to limit messages of the room, newest first.
func (s *Service) ListMessages(ctx context.Context, roomID uint, limit int) ([]models.Message, error) {
	messages := []models.Message{}
	err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
