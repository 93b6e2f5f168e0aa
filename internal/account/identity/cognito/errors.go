package cognito

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/caveo-app/caveo-api/internal/account/domain"
)

type operation string

const (
	opSignUp           operation = "SignUp"
	opSignIn           operation = "InitiateAuth"
	opAddToGroup       operation = "AdminAddUserToGroup"
	opRemoveFromGroup  operation = "AdminRemoveUserFromGroup"
	opUpdateAttrs      operation = "UpdateUserAttributes"
	opAdminUpdateAttrs operation = "AdminUpdateUserAttributes"
)

// fallback messages used when the provider error is not one we classify.
var fallbacks = map[operation]string{
	opSignUp:           "Registration failed",
	opSignIn:           "Authentication failed",
	opAddToGroup:       "Failed to add user to group",
	opRemoveFromGroup:  "Failed to remove user from group",
	opUpdateAttrs:      "Failed to update user attributes",
	opAdminUpdateAttrs: "Failed to update user attributes",
}

// mapError converts an AWS API error into a *domain.Error. Non API errors
// (transport failures, cancelled contexts) become ErrProvider.
func mapError(op operation, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return domain.WrapError(domain.ErrProvider, fallbacks[op], err)
	}

	code := apiErr.ErrorCode()
	switch op {
	case opSignUp:
		switch code {
		case "UsernameExistsException":
			return domain.WrapError(domain.ErrEmailTaken, "Email already registered", err)
		case "InvalidPasswordException":
			return domain.WrapError(domain.ErrWeakPassword, "Password does not meet requirements", err)
		case "InvalidParameterException":
			return domain.WrapError(domain.ErrInvalidFormat, "Invalid email or password format", err)
		}

	case opSignIn:
		switch code {
		case "UserNotFoundException":
			return domain.WrapError(domain.ErrInvalidCredentials, "Invalid email or password", err)
		case "NotAuthorizedException":
			if isDisabled(apiErr) {
				return domain.WrapError(domain.ErrAccountDisabled, "User account is disabled", err)
			}
			return domain.WrapError(domain.ErrInvalidCredentials, "Invalid email or password", err)
		case "UserDisabledException":
			return domain.WrapError(domain.ErrAccountDisabled, "User account is disabled", err)
		case "InvalidParameterException":
			return domain.WrapError(domain.ErrInvalidFormat, "Invalid email or password format", err)
		}

	case opUpdateAttrs:
		switch code {
		case "InvalidParameterException":
			return domain.WrapError(domain.ErrValidation, "Invalid attribute value", err)
		case "NotAuthorizedException":
			return domain.WrapError(domain.ErrUnauthorized, "Invalid or expired access token", err)
		}

	case opAdminUpdateAttrs, opAddToGroup, opRemoveFromGroup:
		switch code {
		case "UserNotFoundException":
			return domain.WrapError(domain.ErrNotFound, "User not found", err)
		case "InvalidParameterException":
			return domain.WrapError(domain.ErrValidation, "Invalid attribute value", err)
		case "ResourceNotFoundException":
			return domain.WrapError(domain.ErrNotFound, "Group not found", err)
		}
	}

	switch code {
	case "TooManyRequestsException", "LimitExceededException", "TooManyFailedAttemptsException":
		return domain.WrapError(domain.ErrRateLimited, "Too many login attempts. Please try again later", err)
	}

	msg := apiErr.ErrorMessage()
	if msg == "" {
		msg = fallbacks[op]
	}
	return domain.WrapError(domain.ErrProvider, msg, err)
}

func isDisabled(apiErr smithy.APIError) bool {
	return strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "disabled")
}
