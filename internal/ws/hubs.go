package ws

type Hubs struct {
	Signal *SignalHub
}

func NewHubs() *Hubs {
	return &Hubs{
		Signal: NewSignalHub(),
	}
}
