package engine

// PrizeSchedule is the payout per spin in cents: $10, $10, $50.
var PrizeSchedule = []int64{
	1000, // spin 1
	1000, // spin 2
	5000, // spin 3
}
