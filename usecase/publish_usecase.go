package usecase

import (
	"context"
	"time"

	"socialhub/domain/dto"
	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/logger"
)

// clientFactory builds the content client for one account; swapped in tests.
type clientFactory func(account *model.SocialAccount) repository.IPlatformClient

type IPublishUsecase interface {
	Publish(ctx context.Context, accountID int64, req *dto.PublishRequest) (*dto.PublishResult, error)
	PublishFanOut(ctx context.Context, accountIDs []int64, req *dto.PublishRequest) map[int64]*dto.PublishResult
	FetchPosts(ctx context.Context, accountID int64, cursor string, limit int) (*dto.FetchResult, error)
	FetchComments(ctx context.Context, accountID int64, postID, cursor string) (*dto.FetchResult, error)
	GetAnalytics(ctx context.Context, accountID int64) (*dto.AnalyticsResult, error)
}

type publishUsecase struct {
	accounts  repository.ISocialAccount
	oauth     IOAuthUsecase
	saUsecase ISocialAccountUsecase
	newClient clientFactory
}

func NewPublishUsecase(accounts repository.ISocialAccount, oauth IOAuthUsecase, saUsecase ISocialAccountUsecase, newClient clientFactory) IPublishUsecase {
	return &publishUsecase{accounts: accounts, oauth: oauth, saUsecase: saUsecase, newClient: newClient}
}

// Publish pushes content to one account, refreshing its token first when
// the stored one has expired.
func (u *publishUsecase) Publish(ctx context.Context, accountID int64, req *dto.PublishRequest) (*dto.PublishResult, error) {
	account, err := u.usableAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	result := u.newClient(account).Publish(ctx, account.PlatformAccountID, account.AccessToken, req)
	logger.Platform(string(account.Platform)).
		WithField("accountID", account.ID).
		WithField("success", result.Success).
		Info("Publish attempted")
	return result, nil
}

// PublishFanOut publishes to every target account, collecting per-target
// results. A platform rejection or missing account never aborts the rest
// of the fan-out.
func (u *publishUsecase) PublishFanOut(ctx context.Context, accountIDs []int64, req *dto.PublishRequest) map[int64]*dto.PublishResult {
	results := make(map[int64]*dto.PublishResult, len(accountIDs))
	for _, id := range accountIDs {
		result, err := u.Publish(ctx, id, req)
		if err != nil {
			results[id] = &dto.PublishResult{Success: false, Error: err.Error()}
			continue
		}
		results[id] = result
	}
	return results
}

func (u *publishUsecase) FetchPosts(ctx context.Context, accountID int64, cursor string, limit int) (*dto.FetchResult, error) {
	account, err := u.usableAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return u.newClient(account).FetchPosts(ctx, account.PlatformAccountID, account.AccessToken, cursor, limit), nil
}

func (u *publishUsecase) FetchComments(ctx context.Context, accountID int64, postID, cursor string) (*dto.FetchResult, error) {
	account, err := u.usableAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return u.newClient(account).FetchComments(ctx, postID, account.AccessToken, cursor), nil
}

func (u *publishUsecase) GetAnalytics(ctx context.Context, accountID int64) (*dto.AnalyticsResult, error) {
	account, err := u.usableAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return u.newClient(account).GetAnalytics(ctx, account.PlatformAccountID, account.AccessToken), nil
}

// usableAccount loads the account and runs a refresh first when the stored
// token is past its expiry. Refresh-then-publish is sequenced here; other
// accounts are independent.
func (u *publishUsecase) usableAccount(ctx context.Context, accountID int64) (*model.SocialAccount, error) {
	account, err := u.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	if account.Status != model.AccountStatusConnected {
		return nil, ErrAccountNotFound
	}
	if account.TokenExpiresAt != nil && !account.TokenExpiresAt.After(time.Now().UTC()) {
		refreshed, err := u.saUsecase.Refresh(ctx, accountID)
		if err != nil {
			return nil, err
		}
		account = refreshed
	}
	return account, nil
}
