package core

// Machine-readable error codes shared across layers. Codes in the first group
// are construction/lookup failures raised before any execution; the second
// group covers execution and policy-bounded exhaustion; the third covers the
// provider boundary.
const (
	CodeToolNotFound      = "TOOL_NOT_FOUND"
	CodeCyclicDependency  = "CYCLIC_DEPENDENCY"
	CodeSchedulerStalled  = "SCHEDULER_STALLED"
	CodeAmbiguousOverride = "AMBIGUOUS_OVERRIDE"
	CodeStepNotFound      = "STEP_NOT_FOUND"
	CodeWorkflowNotFound  = "WORKFLOW_NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"

	CodeToolExecutionFailed = "TOOL_EXECUTION_FAILED"
	CodeToolTimeout         = "TOOL_TIMEOUT"
	CodeIterationLimit      = "ITERATION_LIMIT"
	CodePlanPending         = "PLAN_PENDING"

	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeProviderError       = "PROVIDER_ERROR"
)
