package account

import "clinic-booking-api/internal/model"

const (
	msgInvalidInput      = "Invalid inputs passed, please check your data."
	msgSignupUnavailable = "Signing up failed, please try again later."
	msgSignupFailed      = "Signing up failed, please try again."
	msgBadCredentials    = "Invalid credentials, could not log you in."
	msgLoginUnavailable  = "Logging in failed, please try again later."
	msgLoginFailed       = "Logging in failed, please try again."
	msgBadRefresh        = "Session expired, please log in again."
	msgRefreshFailed     = "Refreshing session failed, please try again."
	msgLogoutFailed      = "Logging out failed, please try again."
	msgEmailInUse        = "can't update your information, the email is already used by another doctor."
	msgUpdateFailed      = "Something went wrong, could not update doctor information."
)

type roleMessages struct {
	exists       string
	notFound     string
	lookupFailed string
	listFailed   string
}

var roleText = map[model.Role]roleMessages{
	model.RolePractitioner: {
		exists:       "Doctor exist already, please login instead.",
		notFound:     "Could not find doctor for the provided id.",
		lookupFailed: "Something went wrong, could not find doctor.",
		listFailed:   "Fetching doctors failed, please try again later.",
	},
	model.RolePatient: {
		exists:       "Patient exist already, please login instead.",
		notFound:     "Could not find patient for the provided id.",
		lookupFailed: "Something went wrong, could not find patient.",
		listFailed:   "Fetching patients failed, please try again later.",
	},
}

func msgs(role model.Role) roleMessages {
	if m, ok := roleText[role]; ok {
		return m
	}
	return roleMessages{
		exists:       "Account exists already, please login instead.",
		notFound:     "Could not find account for the provided id.",
		lookupFailed: "Something went wrong, could not find account.",
		listFailed:   "Fetching accounts failed, please try again later.",
	}
}
