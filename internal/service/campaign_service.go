package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/obdsuperstar/api/internal/model"
)

// CampaignService stores saved campaigns and their comments in Redis. One
// JSON record per campaign, comments as a hash per campaign keyed by comment
// id; a SQL layer is deliberately absent here.
type CampaignService struct {
	redis *redis.Client
}

func NewCampaignService(redisClient *redis.Client) *CampaignService {
	return &CampaignService{redis: redisClient}
}

const campaignIndexKey = "campaigns:index"

func campaignKey(id string) string { return fmt.Sprintf("campaign:%s", id) }
func commentsKey(id string) string { return fmt.Sprintf("comments:%s", id) }

// SaveCampaign persists a finished pipeline result under a name.
func (s *CampaignService) SaveCampaign(ctx context.Context, id, name, createdBy string, result *model.CampaignResult) (*model.Campaign, error) {
	campaign := &model.Campaign{
		ID:        id,
		Name:      strings.TrimSpace(name),
		CreatedBy: createdBy,
		Country:   result.Country,
		Telco:     result.Telco,
		Language:  result.Language,
		CreatedAt: time.Now(),
		Result:    result,
	}

	data, err := json.Marshal(campaign)
	if err != nil {
		return nil, err
	}
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, campaignKey(id), data, 0)
	pipe.SAdd(ctx, campaignIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}
	return campaign, nil
}

// ListCampaigns returns all saved campaigns, newest first, without the full
// result payload.
func (s *CampaignService) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	ids, err := s.redis.SMembers(ctx, campaignIndexKey).Result()
	if err != nil {
		return nil, err
	}

	campaigns := make([]model.Campaign, 0, len(ids))
	for _, id := range ids {
		c, err := s.GetCampaign(ctx, id)
		if err != nil {
			continue // index entry with expired record
		}
		c.Result = nil
		campaigns = append(campaigns, *c)
	}
	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt)
	})
	return campaigns, nil
}

// GetCampaign returns one campaign with its full result.
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	data, err := s.redis.Get(ctx, campaignKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("campaign not found")
		}
		return nil, err
	}
	var campaign model.Campaign
	if err := json.Unmarshal(data, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// DeleteCampaign removes the campaign and its comments.
func (s *CampaignService) DeleteCampaign(ctx context.Context, id string) error {
	n, err := s.redis.Del(ctx, campaignKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("campaign not found")
	}
	pipe := s.redis.TxPipeline()
	pipe.SRem(ctx, campaignIndexKey, id)
	pipe.Del(ctx, commentsKey(id))
	_, err = pipe.Exec(ctx)
	return err
}

// AddComment stores a new comment; the caller is responsible for echoing it
// over the collaboration channel.
func (s *CampaignService) AddComment(ctx context.Context, campaignID, username, text string) (*model.Comment, error) {
	comment := &model.Comment{
		ID:         uuid.New().String(),
		CampaignID: campaignID,
		Username:   username,
		Text:       strings.TrimSpace(text),
		CreatedAt:  time.Now(),
	}
	data, err := json.Marshal(comment)
	if err != nil {
		return nil, err
	}
	if err := s.redis.HSet(ctx, commentsKey(campaignID), comment.ID, data).Err(); err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}
	return comment, nil
}

// ListComments returns a campaign's comments in creation order.
func (s *CampaignService) ListComments(ctx context.Context, campaignID string) ([]model.Comment, error) {
	values, err := s.redis.HVals(ctx, commentsKey(campaignID)).Result()
	if err != nil {
		return nil, err
	}
	comments := make([]model.Comment, 0, len(values))
	for _, v := range values {
		var c model.Comment
		if err := json.Unmarshal([]byte(v), &c); err != nil {
			continue
		}
		comments = append(comments, c)
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

// DeleteComment removes one comment.
func (s *CampaignService) DeleteComment(ctx context.Context, campaignID, commentID string) error {
	n, err := s.redis.HDel(ctx, commentsKey(campaignID), commentID).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("comment not found")
	}
	return nil
}
