package velo

import (
	"context"

	"github.com/IronVelo/cs-velo-sdk/internal/envelope"
	"github.com/IronVelo/cs-velo-sdk/result"
)

// The Delete flow: Ask -> ConfirmPassword -> ConfirmDeletion -> ().
// Every stage carries a token alongside its permit: each step consumes
// the state's current token and embeds a fresh one in the next state,
// so that a mistake anywhere in the flow can always hand the caller
// back a usable, still-logged-in Token via DeleteError.NewToken
// instead of silently logging them out.

type askDeleteArgs struct {
	AskDelete struct {
		Token    Token  `json:"token"`
		Username string `json:"username"`
	} `json:"ask_delete"`
}

type askDeleteRet struct {
	AskDelete       *Token `json:"ask_delete"`
	InvalidUsername *Token `json:"invalid_username"`
}

// DeleteUser starts the account-deletion flow, confirming username
// against the account identified by token. token is consumed
// regardless of outcome.
func (c *Client) DeleteUser(ctx context.Context, token Token, username string) result.FutureResult[DeleteConfirmPassword, DeleteError] {
	sealed := token.consume()
	return result.Go(func(ctx context.Context) result.Result[DeleteConfirmPassword, DeleteError] {
		var args askDeleteArgs
		args.AskDelete.Token = NewToken(sealed)
		args.AskDelete.Username = username

		decoded, reqErr := c.call(ctx, routeDelete, args, nil)
		if reqErr != nil {
			panic(reqErr)
		}

		ret, reqErr := envelope.DecodeRet[askDeleteRet](decoded.Ret)
		if reqErr != nil {
			panic(reqErr)
		}

		either, reqErr := envelope.ToResult(ret.AskDelete, ret.InvalidUsername)
		if reqErr != nil {
			panic(reqErr)
		}
		return result.MapErr(result.Map(either, func(fresh Token) DeleteConfirmPassword {
			return DeleteConfirmPassword{permit: permitOf(decoded.Permit), token: fresh}
		}), func(replacement Token) DeleteError {
			return DeleteError{Reason: DeleteReasonInvalidUsername, NewToken: replacement}
		})
	})
}

// --- ConfirmPassword ---------------------------------------------------------

// DeleteConfirmPassword awaits the account password to confirm the
// deletion request. It owns the Token issued by the previous step,
// consumed by Submit regardless of outcome.
type DeleteConfirmPassword struct {
	permit string
	token  Token
}

type confirmPasswordArgs struct {
	ConfirmPassword struct {
		Password string `json:"password"`
		Token    Token  `json:"token"`
	} `json:"confirm_password"`
}

type confirmPasswordRet struct {
	Ok                *Token `json:"ok"`
	IncorrectPassword *Token `json:"incorrect_password"`
}

// Submit verifies password. On success, transitions to
// DeleteConfirmDeletion, carrying a fresh Token. On an incorrect
// password, a fresh Token is issued and must be used for the caller's
// next request.
func (s DeleteConfirmPassword) Submit(ctx context.Context, c *Client, password Password) result.Result[DeleteConfirmDeletion, DeleteError] {
	var args confirmPasswordArgs
	args.ConfirmPassword.Password = password.Expose()
	args.ConfirmPassword.Token = NewToken(s.token.consume())

	decoded, reqErr := c.call(ctx, routeDelete, args, permitPtr(s.permit))
	if reqErr != nil {
		panic(reqErr)
	}

	ret, reqErr := envelope.DecodeRet[confirmPasswordRet](decoded.Ret)
	if reqErr != nil {
		panic(reqErr)
	}

	either, reqErr := envelope.ToResult(ret.Ok, ret.IncorrectPassword)
	if reqErr != nil {
		panic(reqErr)
	}
	return result.MapErr(result.Map(either, func(fresh Token) DeleteConfirmDeletion {
		return DeleteConfirmDeletion{permit: permitOf(decoded.Permit), token: fresh}
	}), func(replacement Token) DeleteError {
		return DeleteError{Reason: DeleteReasonIncorrectPassword, NewToken: replacement}
	})
}

// --- ConfirmDeletion ---------------------------------------------------------

// DeleteConfirmDeletion is the final confirmation before the account is
// scheduled for deletion (by default, one week deferred; immediate
// deletion is configurable server-side).
type DeleteConfirmDeletion struct {
	permit string
	token  Token
}

type confirmDeletionArgs struct {
	ConfirmDeletion struct {
		Token Token `json:"token"`
	} `json:"confirm_deletion"`
}

type confirmDeletionRet struct {
	Aborted *Token `json:"aborted"`
}

// Confirm finalizes the deletion request, consuming the state's
// Token. On success the account is scheduled for deletion and no
// further token is returned. On failure, a replacement Token is
// returned and must be used for subsequent calls.
func (s DeleteConfirmDeletion) Confirm(ctx context.Context, c *Client) result.Result[struct{}, DeleteError] {
	var args confirmDeletionArgs
	args.ConfirmDeletion.Token = NewToken(s.token.consume())

	decoded, reqErr := c.call(ctx, routeDelete, args, permitPtr(s.permit))
	if reqErr != nil {
		panic(reqErr)
	}

	if len(decoded.Ret) == 0 || string(decoded.Ret) == "{}" || string(decoded.Ret) == "null" {
		return result.Ok[struct{}, DeleteError](struct{}{})
	}

	ret, reqErr := envelope.DecodeRet[confirmDeletionRet](decoded.Ret)
	if reqErr != nil {
		panic(reqErr)
	}
	if ret.Aborted == nil {
		panic(envelope.ErrDeserialization("delete confirm-deletion response carried an unrecognized failure shape"))
	}
	return result.Err[struct{}, DeleteError](DeleteError{
		Reason:   DeleteReasonIncorrectPassword,
		NewToken: *ret.Aborted,
	})
}
