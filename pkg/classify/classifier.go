package classify

// Classify returns the recovery action for a failure signal. The second
// result is false when no rule applies; callers must treat that as fatal.
func Classify(sig Signal) (Action, bool) {
	switch sig.Kind {
	case KindNone:
		return ClassifyStatus(sig.Status), true
	case KindTimeout, KindUnknownHost:
		return ActionRetry, true
	case KindConnectionReset:
		return ActionLimitedRetry, true
	case KindResourceNotFound:
		return ActionMoveOn, true
	case KindGenericIO:
		code, ok := EmbeddedStatus(sig.Detail)
		if !ok {
			return 0, false
		}
		return ClassifyStatus(code), true
	default:
		return 0, false
	}
}

// ClassifyStatus returns the recovery action for an HTTP status code.
// Codes below 400 never describe a failure, so reaching here with one is a
// caller defect and panics the run, as does anything past 599.
func ClassifyStatus(code int) Action {
	switch {
	case code <= 399:
		return ActionPanic
	case code == 400, code == 404:
		// 400 is frequently the garbled-redirect defect; 404 may be propagation delay
		return ActionLimitedRetry
	case code == 408, code == 429:
		return ActionRetry
	case code <= 499:
		return ActionMoveOn
	case code <= 599:
		return ActionRetry
	default:
		return ActionPanic
	}
}

// Categorize places a signal in the failure taxonomy used by logs and metrics
func Categorize(sig Signal) Category {
	switch sig.Kind {
	case KindNone:
		return categorizeStatus(sig.Status)
	case KindTimeout, KindUnknownHost:
		return CategoryTransientNetwork
	case KindConnectionReset:
		return CategoryMalformedRedirect
	case KindResourceNotFound:
		return CategoryResourceAbsent
	case KindGenericIO:
		if code, ok := EmbeddedStatus(sig.Detail); ok {
			return categorizeStatus(code)
		}
		return CategoryUnclassifiable
	default:
		return CategoryUnclassifiable
	}
}

func categorizeStatus(code int) Category {
	switch {
	case code <= 399 || code >= 600:
		return CategoryProtocolViolation
	case code == 404:
		return CategoryResourceAbsent
	case code == 400:
		return CategoryMalformedRedirect
	case code == 408 || code == 429:
		return CategoryTransientNetwork
	case code <= 499:
		return CategoryClientRejected
	default:
		return CategoryServerFault
	}
}
