package storage

import (
	"strconv"
	"time"

	"github.com/Shopify/sarama"
	"github.com/practice-sem-2/chat-rooms-service/internal/models"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	UpdateChatCreated  = "chat_created"
	UpdateMemberJoined = "member_joined"
)

type UpdatesStorage struct {
	cfg      *UpdatesStoreConfig
	producer sarama.SyncProducer
}

type UpdatesStoreConfig struct {
	UpdatesTopic string
}

func NewUpdatesStore(p sarama.SyncProducer, cfg *UpdatesStoreConfig) *UpdatesStorage {
	return &UpdatesStorage{
		producer: p,
		cfg:      cfg,
	}
}

func (s *UpdatesStorage) putUpdate(chatId int, event *structpb.Struct) error {
	if s.producer == nil {
		return nil
	}

	bytes, err := proto.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     s.cfg.UpdatesTopic,
		Key:       sarama.StringEncoder(strconv.Itoa(chatId)),
		Value:     sarama.ByteEncoder(bytes),
		Timestamp: time.Time{},
	})

	return err
}

func toValues(items []string) []interface{} {
	values := make([]interface{}, len(items))
	for i, item := range items {
		values[i] = item
	}
	return values
}

func metaFields(kind string, meta models.UpdateMeta) map[string]interface{} {
	return map[string]interface{}{
		"type":      kind,
		"timestamp": meta.Timestamp.UTC().Unix(),
		"audience":  toValues(meta.Audience),
	}
}

func (s *UpdatesStorage) chatCreatedToProtobuf(chat *models.ChatCreated) (*structpb.Struct, error) {
	fields := metaFields(UpdateChatCreated, chat.UpdateMeta)
	fields["chat_id"] = chat.ChatID
	fields["chat_type"] = string(chat.ChatType)
	fields["members"] = toValues(chat.Members)
	return structpb.NewStruct(fields)
}

func (s *UpdatesStorage) memberJoinedToProtobuf(member *models.MemberJoined) (*structpb.Struct, error) {
	fields := metaFields(UpdateMemberJoined, member.UpdateMeta)
	fields["chat_id"] = member.ChatID
	fields["user_id"] = member.UserID
	return structpb.NewStruct(fields)
}

func (s *UpdatesStorage) ChatCreated(chat *models.ChatCreated) error {
	update, err := s.chatCreatedToProtobuf(chat)
	if err != nil {
		return err
	}
	return s.putUpdate(chat.ChatID, update)
}

func (s *UpdatesStorage) MemberJoined(member *models.MemberJoined) error {
	update, err := s.memberJoinedToProtobuf(member)
	if err != nil {
		return err
	}
	return s.putUpdate(member.ChatID, update)
}
