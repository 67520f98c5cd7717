package voting

// JuryV2 extends the first generation with a selectable voting mode and an
// upgrade gate that closes at activation.
type JuryV2 struct {
	*core
	devRelSeat
	modal
}

func NewJuryV2(cfg Config) (*JuryV2, error) {
	c, err := newCore(cfg, newDevRelRoster())
	if err != nil {
		return nil, err
	}
	return &JuryV2{core: c, devRelSeat: devRelSeat{c}, modal: modal{c}}, nil
}
