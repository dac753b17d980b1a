package allocation

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wattly/wattly-backend/pkg/enums"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
)

// kwhScale bounds the precision of pooled shares so splits stay representable
// in the numeric(16,6) aggregate columns.
const kwhScale = 6

// MemberEnergy is one member's metered totals for a month, summed across the
// member's meter points.
type MemberEnergy struct {
	MemberID            uuid.UUID
	PriorityLevel       int
	TotalConsumptionKwh decimal.Decimal
	TotalProductionKwh  decimal.Decimal
}

// MemberSplit is the five-way allocation result for one member.
// Self + community + grid consumption always equals total consumption.
type MemberSplit struct {
	MemberID                uuid.UUID
	TotalConsumptionKwh     decimal.Decimal
	TotalProductionKwh      decimal.Decimal
	SelfConsumptionKwh      decimal.Decimal
	CommunityConsumptionKwh decimal.Decimal
	GridConsumptionKwh      decimal.Decimal
	ExportedToCommunityKwh  decimal.Decimal
	ExportedToGridKwh       decimal.Decimal
}

// ComputeMonth allocates one month of community energy. Self-consumption is
// netted first per member, the remaining production forms a shared pool, and
// the pool is offered to consumers' residual demand according to the
// organization's distribution policy. What the pool cannot absorb spills to
// the grid on the producer side; what the pool cannot cover is drawn from the
// grid on the consumer side.
func ComputeMonth(policy enums.DistributionPolicy, members []MemberEnergy) ([]MemberSplit, error) {
	if !policy.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, fmt.Sprintf("unknown distribution policy %q", policy))
	}

	splits := make([]MemberSplit, len(members))
	demands := make([]decimal.Decimal, len(members))
	surpluses := make([]decimal.Decimal, len(members))
	pool := decimal.Zero

	for i, m := range members {
		if m.TotalConsumptionKwh.IsNegative() || m.TotalProductionKwh.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("negative energy totals for member %s", m.MemberID))
		}
		self := decimal.Min(m.TotalConsumptionKwh, m.TotalProductionKwh)
		demands[i] = m.TotalConsumptionKwh.Sub(self)
		surpluses[i] = m.TotalProductionKwh.Sub(self)
		pool = pool.Add(surpluses[i])
		splits[i] = MemberSplit{
			MemberID:            m.MemberID,
			TotalConsumptionKwh: m.TotalConsumptionKwh,
			TotalProductionKwh:  m.TotalProductionKwh,
			SelfConsumptionKwh:  self,
		}
	}

	shares := distribute(policy, members, demands, pool)

	absorbed := decimal.Zero
	for i := range splits {
		splits[i].CommunityConsumptionKwh = shares[i]
		splits[i].GridConsumptionKwh = demands[i].Sub(shares[i])
		absorbed = absorbed.Add(shares[i])
	}

	assignExports(splits, surpluses, pool, absorbed)
	return splits, nil
}

// distribute returns each member's community share, capped by residual demand.
func distribute(policy enums.DistributionPolicy, members []MemberEnergy, demands []decimal.Decimal, pool decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(demands))
	if pool.IsZero() {
		return shares
	}

	totalDemand := decimal.Zero
	for _, d := range demands {
		totalDemand = totalDemand.Add(d)
	}
	if totalDemand.IsZero() {
		return shares
	}

	// Pool covers everyone: each consumer is served in full regardless of policy.
	if pool.GreaterThanOrEqual(totalDemand) {
		copy(shares, demands)
		return shares
	}

	switch policy {
	case enums.DistributionPolicyProrata:
		distributed := decimal.Zero
		last := -1
		for i, d := range demands {
			if d.IsZero() {
				continue
			}
			shares[i] = pool.Mul(d).Div(totalDemand).RoundDown(kwhScale)
			distributed = distributed.Add(shares[i])
			last = i
		}
		// Rounding remainder goes to the last consumer, capped by its demand.
		if last >= 0 {
			leftover := pool.Sub(distributed)
			shares[last] = decimal.Min(demands[last], shares[last].Add(leftover))
		}

	case enums.DistributionPolicyEqual:
		remaining := make([]decimal.Decimal, len(demands))
		copy(remaining, demands)
		left := pool
		// Each pass fully serves at least one consumer, so this terminates
		// after at most len(demands) rounds.
		for round := 0; round < len(demands); round++ {
			open := 0
			for _, r := range remaining {
				if r.IsPositive() {
					open++
				}
			}
			if open == 0 || !left.IsPositive() {
				break
			}
			slice := left.Div(decimal.NewFromInt(int64(open))).RoundDown(kwhScale)
			if slice.IsZero() {
				// Residue below representable precision; hand it to the first
				// under-served consumer.
				for i, r := range remaining {
					if r.IsPositive() {
						take := decimal.Min(r, left)
						shares[i] = shares[i].Add(take)
						left = left.Sub(take)
						break
					}
				}
				break
			}
			for i, r := range remaining {
				if !r.IsPositive() {
					continue
				}
				take := decimal.Min(r, slice)
				shares[i] = shares[i].Add(take)
				remaining[i] = r.Sub(take)
				left = left.Sub(take)
			}
		}

	case enums.DistributionPolicyPriority:
		order := make([]int, len(members))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return members[order[a]].PriorityLevel < members[order[b]].PriorityLevel
		})
		left := pool
		for _, i := range order {
			if !left.IsPositive() {
				break
			}
			take := decimal.Min(demands[i], left)
			shares[i] = take
			left = left.Sub(take)
		}
	}

	return shares
}

// assignExports splits each producer's surplus into the part the pool absorbed
// and the part spilled to the grid, pro-rata by surplus contribution. The last
// contributor takes the rounding remainder so exports sum exactly to the
// absorbed total.
func assignExports(splits []MemberSplit, surpluses []decimal.Decimal, pool, absorbed decimal.Decimal) {
	if pool.IsZero() {
		return
	}
	assigned := decimal.Zero
	last := -1
	for i, s := range surpluses {
		if s.IsZero() {
			continue
		}
		last = i
	}
	for i, s := range surpluses {
		if s.IsZero() {
			continue
		}
		var toCommunity decimal.Decimal
		if i == last {
			toCommunity = absorbed.Sub(assigned)
		} else {
			toCommunity = absorbed.Mul(s).Div(pool).RoundDown(kwhScale)
		}
		if toCommunity.GreaterThan(s) {
			toCommunity = s
		}
		splits[i].ExportedToCommunityKwh = toCommunity
		splits[i].ExportedToGridKwh = s.Sub(toCommunity)
		assigned = assigned.Add(toCommunity)
	}
}
