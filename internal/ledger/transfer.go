package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bkramer/bank-ledger-go/internal/domain"
)

// TransferCoordinator moves a balance between two accounts as one logical
// operation. Both accounts' writer slots are held for the whole mutation,
// acquired in lexicographic account-id order so two opposite-direction
// transfers cannot deadlock. The debit precondition of the source variant
// is checked before either side is touched: on any failure neither account
// changes.
type TransferCoordinator struct {
	seq *Sequencer
}

// NewTransferCoordinator creates a coordinator issuing ids from seq.
func NewTransferCoordinator(seq *Sequencer) *TransferCoordinator {
	return &TransferCoordinator{seq: seq}
}

// Transfer debits amount from src and credits it to dst. The two legs get
// distinct sequence ids and share a uuid reference.
func (c *TransferCoordinator) Transfer(ctx context.Context, src, dst *Account, amount decimal.Decimal) (*domain.TransferReceipt, error) {
	if !amount.IsPositive() {
		return nil, &domain.ErrInvalidAmount{Amount: amount}
	}
	if src.id == dst.id {
		return nil, &domain.ErrValidation{Field: "destination_account_id", Message: "cannot transfer to the same account"}
	}

	first, second := src, dst
	if second.id < first.id {
		first, second = second, first
	}
	if err := first.acquire(ctx); err != nil {
		return nil, err
	}
	defer first.release()
	if err := second.acquire(ctx); err != nil {
		return nil, err
	}
	defer second.release()

	today := src.stamp()
	if err := src.policy.checkDebit(src, amount, today); err != nil {
		return nil, err
	}

	ref := uuid.NewString()
	debit := domain.Transaction{
		SequenceID: c.seq.Next(),
		AccountID:  src.id,
		Date:       today,
		Kind:       domain.TxTransfer,
		Amount:     amount.Neg(),
		Reference:  ref,
	}
	credit := domain.Transaction{
		SequenceID: c.seq.Next(),
		AccountID:  dst.id,
		Date:       today,
		Kind:       domain.TxTransfer,
		Amount:     amount,
		Reference:  ref,
	}
	src.append(debit)
	dst.append(credit)

	return &domain.TransferReceipt{
		Reference:            ref,
		SourceAccountID:      src.id,
		DestinationAccountID: dst.id,
		Amount:               amount,
		DebitSequenceID:      debit.SequenceID,
		CreditSequenceID:     credit.SequenceID,
		Date:                 today,
	}, nil
}
