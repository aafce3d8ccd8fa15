// internal/authflow/adapters.go
package authflow

import (
	"orgportal/pkg/tenancy"
)

// AuthorizationParams parametrize the identity provider's authorization-code
// flow for the resolved tenant.
type AuthorizationParams struct {
	Organization string
	RedirectURI  string
	Invitation   string
	ScreenHint   string
}

// LoginOptions is the pure output of the login adapter.
type LoginOptions struct {
	AuthorizationParams AuthorizationParams
	ReturnTo            string
}

// CallbackOptions is the pure output of the callback adapter.
type CallbackOptions struct {
	RedirectURI string
}

// LogoutOptions is the pure output of the logout adapter.
type LogoutOptions struct {
	ReturnTo string
}

// LoginParams selects the organization context and redirect targets for a
// login. The invitation, when present, is forwarded opaquely to the provider.
func LoginParams(res tenancy.Resolution, invitation string) LoginOptions {
	return LoginOptions{
		AuthorizationParams: AuthorizationParams{
			Organization: res.OrgName,
			RedirectURI:  res.Domain + "/api/auth/callback",
			Invitation:   invitation,
		},
		ReturnTo: res.Domain + "/dashboard/account/tokens",
	}
}

// SignupParams is the signup variant: same flow with a signup screen hint and
// a root return target.
func SignupParams(res tenancy.Resolution) LoginOptions {
	return LoginOptions{
		AuthorizationParams: AuthorizationParams{
			RedirectURI: res.Domain + "/api/auth/callback",
			ScreenHint:  "signup",
		},
		ReturnTo: "/",
	}
}

// CallbackParams yields the redirect URI the code exchange must present.
func CallbackParams(res tenancy.Resolution) CallbackOptions {
	return CallbackOptions{RedirectURI: res.Domain}
}

// LogoutParams yields the post-logout return URL.
func LogoutParams(res tenancy.Resolution) LogoutOptions {
	return LogoutOptions{ReturnTo: res.Domain}
}
