package attendance

import (
	"context"
	"fmt"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
)

// NewReplayDispatcher applies queued operations through the same pipeline as
// online requests. The item's idempotency key becomes the client reference, so
// a replay that already reached the database returns the stored row.
func NewReplayDispatcher(svc attendance.AttendanceService) syncqueue.Dispatcher {
	return syncqueue.DispatcherFunc(func(ctx context.Context, item syncqueue.Item) error {
		ref := item.IdempotencyKey

		switch item.OperationType {
		case syncqueue.OpClockIn:
			var p syncqueue.ClockInPayload
			if err := syncqueue.DecodePayload(item.Payload, &p); err != nil {
				return err
			}
			_, err := svc.ClockIn(ctx, attendance.ClockInRequest{
				EmployeeID:        item.EmployeeID,
				CompanyID:         item.CompanyID,
				Timestamp:         item.DeviceTimestamp,
				LocationType:      attendance.LocationType(p.LocationType),
				BranchID:          p.BranchID,
				Latitude:          p.Latitude,
				Longitude:         p.Longitude,
				Accuracy:          p.Accuracy,
				FieldReason:       p.FieldReason,
				FieldDescription:  p.FieldDescription,
				DeviceFingerprint: p.DeviceFingerprint,
				DeviceAttributes:  p.DeviceAttributes,
				ClientRef:         &ref,
				Source:            attendance.SourceSync,
			})
			return err

		case syncqueue.OpClockOut:
			var p syncqueue.ClockOutPayload
			if err := syncqueue.DecodePayload(item.Payload, &p); err != nil {
				return err
			}
			_, err := svc.ClockOut(ctx, attendance.ClockOutRequest{
				EmployeeID:   item.EmployeeID,
				CompanyID:    item.CompanyID,
				AttendanceID: p.AttendanceID,
				Timestamp:    item.DeviceTimestamp,
				Latitude:     p.Latitude,
				Longitude:    p.Longitude,
				ClientRef:    &ref,
				Source:       attendance.SourceSync,
			})
			return err

		case syncqueue.OpBreakStart, syncqueue.OpBreakEnd:
			var p syncqueue.BreakPayload
			if err := syncqueue.DecodePayload(item.Payload, &p); err != nil {
				return err
			}
			req := attendance.BreakRequest{
				EmployeeID:   item.EmployeeID,
				CompanyID:    item.CompanyID,
				BreakID:      p.BreakID,
				AttendanceID: p.AttendanceID,
				Timestamp:    item.DeviceTimestamp,
			}
			var err error
			if item.OperationType == syncqueue.OpBreakStart {
				_, err = svc.StartBreak(ctx, req)
			} else {
				_, err = svc.EndBreak(ctx, req)
			}
			return err
		}

		return fmt.Errorf("%w: %s", syncqueue.ErrUnsupportedOp, item.OperationType)
	})
}
