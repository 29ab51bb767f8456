package verifier

import (
	"strconv"
	"sync"

	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/pkg/utils"
)

func NewWorker(id int, inputQueue chan VerifierInput, outputQueue chan VerifierOutput, wg *sync.WaitGroup) *VerifierWorker {
	return &VerifierWorker{
		Id:          id,
		InputQueue:  inputQueue,
		OutputQueue: outputQueue,
		wg:          wg,
	}
}

func (worker *VerifierWorker) Start() {
	logging.GlobalLogger.Debug("Started verifier worker " + strconv.Itoa(worker.Id))

	worker.wg.Add(1)
	go func() {
		defer worker.wg.Done()
		for input := range worker.InputQueue {
			digest, size, err := DigestFile(input.Path)
			if err != nil {
				logging.GlobalLogger.Warn("Worker " + strconv.Itoa(worker.Id) + ": Failed to hash " + input.Name + ": " + err.Error())
			} else {
				logging.GlobalLogger.Debug("Worker " + strconv.Itoa(worker.Id) + ": Hashed " + input.Name + " -> " + digest)
			}
			worker.OutputQueue <- VerifierOutput{
				Name:    input.Name,
				Path:    input.Path,
				Size:    size,
				Digest:  digest,
				Err:     err,
				Payload: input.Payload,
			}
		}
	}()
}

// NewVerifier starts threadCount hashing workers. buffSize bounds both queues.
func NewVerifier(threadCount, buffSize int) *Verifier {
	if threadCount < 1 {
		threadCount = 1
	}
	logging.GlobalLogger.Debug("Initializing Verifier with " + strconv.Itoa(threadCount) + " workers")

	inputQueue := make(chan VerifierInput, buffSize)
	outputQueue := make(chan VerifierOutput, buffSize)
	workers := make([]*VerifierWorker, threadCount)
	wg := &sync.WaitGroup{}

	for i := 0; i < threadCount; i++ {
		workers[i] = NewWorker(i, inputQueue, outputQueue, wg)
		workers[i].Start()
	}

	return &Verifier{
		ThreadCount: threadCount,
		InputQueue:  inputQueue,
		OutputQueue: outputQueue,
		Workers:     workers,
		wg:          wg,
	}
}

func (v *Verifier) Stop() {
	close(v.InputQueue)
	v.wg.Wait()
	close(v.OutputQueue)
	logging.GlobalLogger.Debug("Verifier stopped")
}

func (v *Verifier) EnqueueFile(name, path string, payload any) {
	utils.NonBlockingEnqueue(v.InputQueue, VerifierInput{Name: name, Path: path, Payload: payload})
}

func (v *Verifier) GetOutputChannel() chan VerifierOutput {
	return v.OutputQueue
}
