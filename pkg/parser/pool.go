package parser

// DefaultPoolSize is the capacity of the package-level pool.
const DefaultPoolSize = 16

var defaultPool = NewPool(DefaultPoolSize)

// Pool is a bounded pool of parser instances.
//
// Instances are checked out with Get and returned with Put, which resets them
// first. With wraps both and returns the instance on every exit path,
// including errors and panics. When the pool is empty Get allocates a new
// instance; when it is full Put drops the instance.
type Pool struct {
	idle chan *Parser
}

// NewPool creates a pool keeping at most size idle parsers.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{idle: make(chan *Parser, size)}
}

// Get checks out a parser.
func (p *Pool) Get() *Parser {
	select {
	case parser := <-p.idle:
		return parser
	default:
		return newParser()
	}
}

// Put resets parser and checks it back in.
func (p *Pool) Put(parser *Parser) {
	parser.reset()
	select {
	case p.idle <- parser:
	default:
	}
}

// With runs fn with a checked-out parser and always checks it back in.
func (p *Pool) With(fn func(*Parser) error) error {
	parser := p.Get()
	defer p.Put(parser)
	return fn(parser)
}

// Idle returns the number of parsers waiting in the pool.
func (p *Pool) Idle() int {
	return len(p.idle)
}
