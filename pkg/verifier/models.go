package verifier

import "sync"

type VerifierInput struct {
	Name    string
	Path    string
	Payload any
}

type VerifierOutput struct {
	Name    string
	Path    string
	Size    int64
	Digest  string
	Err     error
	Payload any
}

type VerifierWorker struct {
	Id          int
	InputQueue  chan VerifierInput
	OutputQueue chan VerifierOutput
	wg          *sync.WaitGroup
}

// Verifier is a pool of workers hashing files on disk.
type Verifier struct {
	ThreadCount int
	InputQueue  chan VerifierInput
	OutputQueue chan VerifierOutput
	Workers     []*VerifierWorker
	wg          *sync.WaitGroup
}
