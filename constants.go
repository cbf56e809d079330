package main

// Session configuration constants
const (
	SessionCookieName = "session_id"
)

// Route constants
const (
	RouteSetup     = "/setup"
	RouteRecommend = "/recommend"
	RouteFeedback  = "/feedback"
	RouteOverride  = "/override"
	RouteTerminate = "/terminate"
	RouteState     = "/state"
	RouteHealthz   = "/healthz"
)

// Setup form fields
const (
	FieldPuzzleFile   = "puzzle_file"
	FieldPuzzleUpload = "puzzle_upload"
)

// Error codes returned in the "code" field of error responses
const (
	CodeSetup          = "setup_error"
	CodeNoSession      = "no_session"
	CodeNoPending      = "no_pending_recommendation"
	CodeAlreadyPending = "already_pending"
	CodeDuplicateColor = "duplicate_color"
	CodeValidation     = "validation_error"
	CodeRecommender    = "recommender_error"
	CodeRateLimited    = "rate_limited"
	CodeInternal       = "internal_error"
)

// Messages
const (
	MessageTerminated  = "Session terminated."
	MessageRateLimited = "Too many requests. Please slow down."
)

// Context key constants
const (
	requestIDKey contextKey = "request_id"
)
