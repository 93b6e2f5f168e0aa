// Package cognito implements identity.Provider on top of an AWS Cognito user
// pool using the AWS SDK for Go v2.
package cognito

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/internal/account/identity"
	"github.com/caveo-app/caveo-api/pkg/slogx"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
)

// API is the slice of *cognitoidentityprovider.Client used here.
type API interface {
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	AdminAddUserToGroup(ctx context.Context, in *cip.AdminAddUserToGroupInput, optFns ...func(*cip.Options)) (*cip.AdminAddUserToGroupOutput, error)
	AdminRemoveUserFromGroup(ctx context.Context, in *cip.AdminRemoveUserFromGroupInput, optFns ...func(*cip.Options)) (*cip.AdminRemoveUserFromGroupOutput, error)
	UpdateUserAttributes(ctx context.Context, in *cip.UpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.UpdateUserAttributesOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, in *cip.AdminUpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error)
}

type Config struct {
	Region      string
	UserPoolID  string
	ClientID    string
	Timeout     time.Duration
	MaxAttempts int
}

// Client is a Cognito backed identity.Provider.
type Client struct {
	api      API
	poolID   string
	clientID string
}

var _ identity.Provider = (*Client)(nil)

// New loads AWS credentials from the default chain and builds a client with
// a bounded retryer and HTTP timeout.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.UserPoolID == "" || cfg.ClientID == "" {
		return nil, errors.New("cognito: user pool id and client id are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = cfg.MaxAttempts
			})
		}),
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("cognito: load aws config: %w", err)
	}

	return NewWithAPI(cip.NewFromConfig(awsCfg), cfg.UserPoolID, cfg.ClientID), nil
}

// NewWithAPI wraps an existing API implementation.
func NewWithAPI(api API, userPoolID, clientID string) *Client {
	return &Client{api: api, poolID: userPoolID, clientID: clientID}
}

func (c *Client) SignUp(ctx context.Context, email, password, name string) (string, error) {
	out, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("name"), Value: aws.String(name)},
		},
	})
	if err != nil {
		slogx.FromContext(ctx).Error("cognito sign up failed", "email", email, "err", err)
		return "", mapError(opSignUp, err)
	}
	if out.UserSub == nil || *out.UserSub == "" {
		return "", domain.NewError(domain.ErrProvider, "Registration failed")
	}
	return *out.UserSub, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (domain.Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("cognito sign in failed", "email", email, "err", err)
		return domain.Tokens{}, mapError(opSignIn, err)
	}

	// A challenge (e.g. NEW_PASSWORD_REQUIRED) comes back without tokens.
	res := out.AuthenticationResult
	if res == nil {
		slogx.FromContext(ctx).Warn("cognito sign in returned no tokens",
			"email", email, "challenge", string(out.ChallengeName))
		return domain.Tokens{}, domain.NewError(domain.ErrProvider, "Authentication failed - no result")
	}

	return domain.Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

func (c *Client) AddToGroup(ctx context.Context, username string, group domain.Role) error {
	_, err := c.api.AdminAddUserToGroup(ctx, &cip.AdminAddUserToGroupInput{
		UserPoolId: aws.String(c.poolID),
		Username:   aws.String(username),
		GroupName:  aws.String(group.String()),
	})
	if err != nil {
		slogx.FromContext(ctx).Error("cognito add to group failed",
			"username", username, "group", group, "err", err)
		return mapError(opAddToGroup, err)
	}
	return nil
}

func (c *Client) RemoveFromGroup(ctx context.Context, username string, group domain.Role) error {
	_, err := c.api.AdminRemoveUserFromGroup(ctx, &cip.AdminRemoveUserFromGroupInput{
		UserPoolId: aws.String(c.poolID),
		Username:   aws.String(username),
		GroupName:  aws.String(group.String()),
	})
	if err != nil {
		slogx.FromContext(ctx).Error("cognito remove from group failed",
			"username", username, "group", group, "err", err)
		return mapError(opRemoveFromGroup, err)
	}
	return nil
}

func (c *Client) UpdateUserAttributes(ctx context.Context, accessToken string, attrs identity.Attributes) error {
	if attrs.IsEmpty() {
		return nil
	}
	_, err := c.api.UpdateUserAttributes(ctx, &cip.UpdateUserAttributesInput{
		AccessToken:    aws.String(accessToken),
		UserAttributes: toAttributeTypes(attrs),
	})
	if err != nil {
		slogx.FromContext(ctx).Error("cognito update attributes failed", "err", err)
		return mapError(opUpdateAttrs, err)
	}
	return nil
}

func (c *Client) AdminUpdateUserAttributes(ctx context.Context, username string, attrs identity.Attributes) error {
	if attrs.IsEmpty() {
		return nil
	}
	_, err := c.api.AdminUpdateUserAttributes(ctx, &cip.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(c.poolID),
		Username:       aws.String(username),
		UserAttributes: toAttributeTypes(attrs),
	})
	if err != nil {
		slogx.FromContext(ctx).Error("cognito admin update attributes failed",
			"username", username, "err", err)
		return mapError(opAdminUpdateAttrs, err)
	}
	return nil
}

func toAttributeTypes(attrs identity.Attributes) []types.AttributeType {
	var out []types.AttributeType
	if attrs.Name != nil {
		out = append(out, types.AttributeType{Name: aws.String("name"), Value: attrs.Name})
	}
	return out
}
