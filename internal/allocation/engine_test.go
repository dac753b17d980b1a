package allocation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wattly/wattly-backend/pkg/enums"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
)

func kwh(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeMonth_ProrataSharesPool(t *testing.T) {
	producer := uuid.New()
	consumerA := uuid.New()
	consumerB := uuid.New()

	splits, err := ComputeMonth(enums.DistributionPolicyProrata, []MemberEnergy{
		{MemberID: producer, TotalProductionKwh: kwh("100")},
		{MemberID: consumerA, TotalConsumptionKwh: kwh("80")},
		{MemberID: consumerB, TotalConsumptionKwh: kwh("80")},
	})
	if err != nil {
		t.Fatalf("ComputeMonth: %v", err)
	}

	byID := indexSplits(splits)

	if got := byID[consumerA].CommunityConsumptionKwh; !got.Equal(kwh("50")) {
		t.Fatalf("consumer A community = %s, want 50", got)
	}
	if got := byID[consumerB].CommunityConsumptionKwh; !got.Equal(kwh("50")) {
		t.Fatalf("consumer B community = %s, want 50", got)
	}
	if got := byID[consumerA].GridConsumptionKwh.Add(byID[consumerB].GridConsumptionKwh); !got.Equal(kwh("60")) {
		t.Fatalf("combined grid = %s, want 60", got)
	}
	if got := byID[producer].ExportedToGridKwh; !got.IsZero() {
		t.Fatalf("producer exported to grid = %s, want 0", got)
	}
	if got := byID[producer].ExportedToCommunityKwh; !got.Equal(kwh("100")) {
		t.Fatalf("producer exported to community = %s, want 100", got)
	}
}

func TestComputeMonth_SelfConsumptionNetsFirst(t *testing.T) {
	prosumer := uuid.New()

	splits, err := ComputeMonth(enums.DistributionPolicyProrata, []MemberEnergy{
		{MemberID: prosumer, TotalConsumptionKwh: kwh("100"), TotalProductionKwh: kwh("60")},
	})
	if err != nil {
		t.Fatalf("ComputeMonth: %v", err)
	}

	split := splits[0]
	if !split.SelfConsumptionKwh.Equal(kwh("60")) {
		t.Fatalf("self = %s, want 60", split.SelfConsumptionKwh)
	}
	if !split.CommunityConsumptionKwh.IsZero() {
		t.Fatalf("community = %s, want 0", split.CommunityConsumptionKwh)
	}
	if !split.GridConsumptionKwh.Equal(kwh("40")) {
		t.Fatalf("grid = %s, want 40", split.GridConsumptionKwh)
	}
}

func TestComputeMonth_PoolCoversAllDemand(t *testing.T) {
	producer := uuid.New()
	consumer := uuid.New()

	splits, err := ComputeMonth(enums.DistributionPolicyEqual, []MemberEnergy{
		{MemberID: producer, TotalProductionKwh: kwh("120")},
		{MemberID: consumer, TotalConsumptionKwh: kwh("70")},
	})
	if err != nil {
		t.Fatalf("ComputeMonth: %v", err)
	}

	byID := indexSplits(splits)
	if got := byID[consumer].CommunityConsumptionKwh; !got.Equal(kwh("70")) {
		t.Fatalf("community = %s, want 70", got)
	}
	if got := byID[consumer].GridConsumptionKwh; !got.IsZero() {
		t.Fatalf("grid = %s, want 0", got)
	}
	if got := byID[producer].ExportedToCommunityKwh; !got.Equal(kwh("70")) {
		t.Fatalf("exported to community = %s, want 70", got)
	}
	if got := byID[producer].ExportedToGridKwh; !got.Equal(kwh("50")) {
		t.Fatalf("exported to grid = %s, want 50", got)
	}
}

func TestComputeMonth_EqualPolicyRedistributesLeftover(t *testing.T) {
	producer := uuid.New()
	small := uuid.New()
	large := uuid.New()

	splits, err := ComputeMonth(enums.DistributionPolicyEqual, []MemberEnergy{
		{MemberID: producer, TotalProductionKwh: kwh("90")},
		{MemberID: small, TotalConsumptionKwh: kwh("10")},
		{MemberID: large, TotalConsumptionKwh: kwh("100")},
	})
	if err != nil {
		t.Fatalf("ComputeMonth: %v", err)
	}

	byID := indexSplits(splits)
	if got := byID[small].CommunityConsumptionKwh; !got.Equal(kwh("10")) {
		t.Fatalf("small community = %s, want 10", got)
	}
	if got := byID[large].CommunityConsumptionKwh; !got.Equal(kwh("80")) {
		t.Fatalf("large community = %s, want 80", got)
	}
}

func TestComputeMonth_PriorityPolicyFillsInOrder(t *testing.T) {
	producer := uuid.New()
	first := uuid.New()
	second := uuid.New()

	splits, err := ComputeMonth(enums.DistributionPolicyPriority, []MemberEnergy{
		{MemberID: producer, TotalProductionKwh: kwh("50")},
		{MemberID: second, PriorityLevel: 2, TotalConsumptionKwh: kwh("40")},
		{MemberID: first, PriorityLevel: 1, TotalConsumptionKwh: kwh("40")},
	})
	if err != nil {
		t.Fatalf("ComputeMonth: %v", err)
	}

	byID := indexSplits(splits)
	if got := byID[first].CommunityConsumptionKwh; !got.Equal(kwh("40")) {
		t.Fatalf("priority 1 community = %s, want 40", got)
	}
	if got := byID[second].CommunityConsumptionKwh; !got.Equal(kwh("10")) {
		t.Fatalf("priority 2 community = %s, want 10", got)
	}
	if got := byID[second].GridConsumptionKwh; !got.Equal(kwh("30")) {
		t.Fatalf("priority 2 grid = %s, want 30", got)
	}
}

func TestComputeMonth_ConservationHolds(t *testing.T) {
	members := []MemberEnergy{
		{MemberID: uuid.New(), TotalConsumptionKwh: kwh("123.456789"), TotalProductionKwh: kwh("10.5")},
		{MemberID: uuid.New(), TotalConsumptionKwh: kwh("0.333333"), TotalProductionKwh: kwh("200")},
		{MemberID: uuid.New(), TotalConsumptionKwh: kwh("57.1"), TotalProductionKwh: kwh("57.1")},
		{MemberID: uuid.New(), TotalConsumptionKwh: kwh("81.25")},
		{MemberID: uuid.New(), TotalProductionKwh: kwh("33.000001")},
	}

	for _, policy := range []enums.DistributionPolicy{
		enums.DistributionPolicyProrata,
		enums.DistributionPolicyEqual,
		enums.DistributionPolicyPriority,
	} {
		splits, err := ComputeMonth(policy, members)
		if err != nil {
			t.Fatalf("%s: ComputeMonth: %v", policy, err)
		}

		communityTotal := decimal.Zero
		exportedTotal := decimal.Zero
		for _, split := range splits {
			consumptionSum := split.SelfConsumptionKwh.
				Add(split.CommunityConsumptionKwh).
				Add(split.GridConsumptionKwh)
			if !consumptionSum.Equal(split.TotalConsumptionKwh) {
				t.Fatalf("%s: member %s consumption split %s != total %s",
					policy, split.MemberID, consumptionSum, split.TotalConsumptionKwh)
			}
			productionSum := split.SelfConsumptionKwh.
				Add(split.ExportedToCommunityKwh).
				Add(split.ExportedToGridKwh)
			if split.TotalProductionKwh.IsPositive() && !productionSum.Equal(split.TotalProductionKwh) {
				t.Fatalf("%s: member %s production split %s != total %s",
					policy, split.MemberID, productionSum, split.TotalProductionKwh)
			}
			communityTotal = communityTotal.Add(split.CommunityConsumptionKwh)
			exportedTotal = exportedTotal.Add(split.ExportedToCommunityKwh)
		}
		if !communityTotal.Equal(exportedTotal) {
			t.Fatalf("%s: community consumed %s != exported to community %s",
				policy, communityTotal, exportedTotal)
		}
	}
}

func TestComputeMonth_RejectsNegativeTotals(t *testing.T) {
	_, err := ComputeMonth(enums.DistributionPolicyProrata, []MemberEnergy{
		{MemberID: uuid.New(), TotalConsumptionKwh: kwh("-1")},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestComputeMonth_RejectsUnknownPolicy(t *testing.T) {
	_, err := ComputeMonth(enums.DistributionPolicy("weird"), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func indexSplits(splits []MemberSplit) map[uuid.UUID]MemberSplit {
	out := make(map[uuid.UUID]MemberSplit, len(splits))
	for _, split := range splits {
		out[split.MemberID] = split
	}
	return out
}
