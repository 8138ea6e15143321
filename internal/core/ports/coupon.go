package ports

import "context"

// CouponService is the external fee/coupon subsystem. A caller holding at
// least one coupon pays for protection by burning one unit instead of
// sending a payment.
type CouponService interface {
	BalanceOf(ctx context.Context, addr string) (uint64, error)
	BurnOne(ctx context.Context, addr string) error
}
