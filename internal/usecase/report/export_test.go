package report

import "time"

// SetClock подменяет часы сценария принятия отклика.
func (uc *AcceptQuotationUseCase) SetClock(now func() time.Time) { uc.now = now }
