package order

// orderState implements the state pattern for order lifecycle transitions.
type orderState interface {
	Status() Status
	OnItemSet(o *Order) (orderState, error)
	OnConfirm(o *Order) (orderState, error)
	OnPay(o *Order) (orderState, error)
}

type inOrderState struct{}

func (inOrderState) Status() Status { return StatusInOrder }

func (inOrderState) OnItemSet(*Order) (orderState, error) {
	return inOrderState{}, nil
}

func (inOrderState) OnConfirm(o *Order) (orderState, error) {
	if len(o.Items) == 0 {
		return nil, ErrEmpty
	}
	return confirmedState{}, nil
}

func (inOrderState) OnPay(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

type confirmedState struct{}

func (confirmedState) Status() Status { return StatusConfirmed }

func (confirmedState) OnItemSet(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (confirmedState) OnConfirm(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (confirmedState) OnPay(*Order) (orderState, error) {
	return paidState{}, nil
}

type paidState struct{}

func (paidState) Status() Status { return StatusPaid }

func (paidState) OnItemSet(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (paidState) OnConfirm(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (paidState) OnPay(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}
