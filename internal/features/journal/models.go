// Package journal: журнал заявок: покупки планов, пополнения, выводы, игры.
// models.go описывает записи журнала и их статусы.
package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status: статус заявки на пополнение или вывод.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// PurchaseStatus: статус купленного плана.
type PurchaseStatus string

const (
	PurchaseActive    PurchaseStatus = "active"
	PurchaseCompleted PurchaseStatus = "completed"
)

// Purchase: купленный план. Параметры плана копируются в момент покупки,
// поэтому правка каталога не меняет уже купленные планы.
type Purchase struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserID         uuid.UUID       `db:"user_id" json:"userId"`
	PlanID         int             `db:"plan_id" json:"planId"`
	PlanName       string          `db:"plan_name" json:"planName"`
	Price          decimal.Decimal `db:"price" json:"price"`
	DailyIncome    decimal.Decimal `db:"daily_income" json:"dailyIncome"`
	TotalReturn    decimal.Decimal `db:"total_return" json:"totalReturn"`
	DurationDays   int             `db:"duration_days" json:"duration"`
	IncomeReceived decimal.Decimal `db:"income_received" json:"dailyIncomeReceived"`
	Status         PurchaseStatus  `db:"status" json:"status"`
	PurchasedAt    time.Time       `db:"purchased_at" json:"purchaseDate"`
	LastAccruedOn  *time.Time      `db:"last_accrued_on" json:"lastAccruedOn,omitempty"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
}

// Recharge: заявка на пополнение, подтверждаемая админом вручную по UTR.
type Recharge struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"userId"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	UTR         string          `db:"utr" json:"utr"`
	Status      Status          `db:"status" json:"status"`
	RequestedAt time.Time       `db:"requested_at" json:"requestDate"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processedDate,omitempty"`
}

// Method: способ вывода.
type Method string

const (
	MethodUPI  Method = "upi"  // перевод на адрес кошелька (UPI ID)
	MethodBank Method = "bank" // реквизиты банковского счёта
)

// Valid сообщает, известен ли способ вывода.
func (m Method) Valid() bool {
	return m == MethodUPI || m == MethodBank
}

// Withdrawal: заявка на вывод. Amount: брутто, списывается при одобрении;
// пользователь получает NetAmount = Amount − Tax.
type Withdrawal struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"userId"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Tax         decimal.Decimal `db:"tax" json:"gst"`
	NetAmount   decimal.Decimal `db:"net_amount" json:"netAmount"`
	Method      Method          `db:"method" json:"method"`
	Details     string          `db:"details" json:"details"`
	Status      Status          `db:"status" json:"status"`
	RequestedAt time.Time       `db:"requested_at" json:"requestDate"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processedDate,omitempty"`
}

// GamePlay: неизменяемая запись о сыгранной игре.
type GamePlay struct {
	ID       uuid.UUID       `db:"id" json:"id"`
	UserID   uuid.UUID       `db:"user_id" json:"userId"`
	Variant  string          `db:"variant" json:"gameType"`
	Stake    decimal.Decimal `db:"stake" json:"betAmount"`
	Win      bool            `db:"win" json:"isWin"`
	Payout   decimal.Decimal `db:"payout" json:"winAmount"`
	Result   string          `db:"result" json:"result"`
	PlayedAt time.Time       `db:"played_at" json:"playDate"`
}
