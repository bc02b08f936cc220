package protocol

// Request status codes returned in RequestStatus.Code.
const (
	StatusUnknown = 0

	StatusNoError = 10
	StatusSuccess = 100

	StatusMissingRequestType                   = 203
	StatusUnknownRequestType                   = 204
	StatusGenericError                         = 205
	StatusUnsupportedRequestBatchExecutionType = 206
	StatusNotReady                             = 207

	StatusMissingRequestField = 300
	StatusMissingRequestData  = 301

	StatusInvalidRequestField     = 400
	StatusInvalidRequestFieldType = 401
	StatusRequestFieldOutOfRange  = 402
	StatusRequestFieldEmpty       = 403
	StatusTooManyRequestFields    = 404

	StatusOutputRunning       = 500
	StatusOutputNotRunning    = 501
	StatusOutputPaused        = 502
	StatusOutputNotPaused     = 503
	StatusOutputDisabled      = 504
	StatusStudioModeActive    = 505
	StatusStudioModeNotActive = 506

	StatusResourceNotFound        = 600
	StatusResourceAlreadyExists   = 601
	StatusInvalidResourceType     = 602
	StatusNotEnoughResources      = 603
	StatusInvalidResourceState    = 604
	StatusInvalidInputKind        = 605
	StatusResourceNotConfigurable = 606
	StatusInvalidFilterKind       = 607

	StatusResourceCreationFailed  = 700
	StatusResourceActionFailed    = 701
	StatusRequestProcessingFailed = 702
	StatusCannotAct               = 703
)

// WebSocket close codes used by the server.
const (
	CloseDontClose             = 0
	CloseUnknownReason         = 4000
	CloseMessageDecodeError    = 4002
	CloseMissingDataField      = 4003
	CloseInvalidDataFieldType  = 4004
	CloseInvalidDataFieldValue = 4005
	CloseUnknownOpCode         = 4006
	CloseNotIdentified         = 4007
	CloseAlreadyIdentified     = 4008
	CloseAuthenticationFailed  = 4009
	CloseUnsupportedRPCVersion = 4010
	CloseSessionInvalidated    = 4011
	CloseUnsupportedFeature    = 4012
)
