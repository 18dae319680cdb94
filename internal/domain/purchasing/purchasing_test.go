package purchasing

import "testing"

func TestTotal(t *testing.T) {
	po := &PurchaseOrder{Lines: []POLine{{Amount: 100}, {Amount: 250.5}}}
	if po.Total() != 350.5 {
		t.Fatalf("Total = %v", po.Total())
	}
	if po.Received() {
		t.Fatal("no receipt attached")
	}
	po.Receipt = &GoodsReceipt{Number: "GR-1"}
	if !po.Received() {
		t.Fatal("receipt attached")
	}
}
