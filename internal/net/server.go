package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"gungnir/internal/book"
	"gungnir/internal/common"
	"gungnir/internal/utils"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Minute
)

var (
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// ClientSession contains relevant information pertaining to an individual
// connected TCP session.
type ClientSession struct {
	conn net.Conn
}

// ClientMessage links a message to the client sending it.
type ClientMessage struct {
	clientAddress string
	message       Message
}

// Engine is the interface that provides access to order handling.
type Engine interface {
	PlaceOrder(assetType common.AssetType, order common.Order) error
	CancelOrder(assetType common.AssetType, uuid book.OrderID) error
	QuoteMarketCost(assetType common.AssetType, side book.Side, quantity decimal.Decimal) (decimal.Decimal, decimal.Decimal, error)
	LogBook()
}

type Server struct {
	address string
	port    int
	engine  Engine
	pool    *utils.WorkerPool[net.Conn]
	cancel  context.CancelFunc

	// clientSessions is keyed by remote address; ownerAddresses maps an
	// order owner to the session their fills go to.
	clientSessions     map[string]ClientSession
	ownerAddresses     map[string]string
	clientSessionsLock sync.Mutex

	clientMessages chan ClientMessage
}

func New(address string, port int, engine Engine) *Server {
	return &Server{
		address:        address,
		port:           port,
		engine:         engine,
		pool:           utils.NewWorkerPool[net.Conn](defaultNWorkers),
		clientSessions: make(map[string]ClientSession),
		ownerAddresses: make(map[string]string),
		clientMessages: make(chan ClientMessage, 1),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	// Setup a cancel on the context for future shutdown.
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	// Start a tcp listener.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	// Start the worker pool reading client connections.
	s.pool.Setup(t, s.handleConnection)

	// Start the session handler. All engine calls happen on this one
	// goroutine, which is the book's required serialization.
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("server running")

	// Start accepting connections.
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			log.Info().
				Str("address", conn.RemoteAddr().String()).
				Msg("new client added")
			// Add the client to client sessions we are tracking.
			// We expect to potentially maintain a long TCP session.
			s.addClientSession(conn)

			// Pass over the connection to be read from.
			s.pool.AddTask(conn)
		}
	}
}

// ReportFill implements engine.Reporter: it writes an execution report to
// the session owning the filled order.
func (s *Server) ReportFill(report common.FillReport) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	address, ok := s.ownerAddresses[report.Owner]
	if !ok {
		return ErrClientDoesNotExist
	}
	client, ok := s.clientSessions[address]
	if !ok {
		return ErrClientDoesNotExist
	}

	if _, err := client.conn.Write(fillReportFrame(report)); err != nil {
		delete(s.clientSessions, address)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

func (s *Server) reportQuote(clientAddress string, assetType common.AssetType, filled, cost decimal.Decimal) error {
	return s.writeToClient(clientAddress, quoteReportFrame(assetType, filled, cost))
}

func (s *Server) reportAccepted(clientAddress string, order common.Order) error {
	return s.writeToClient(clientAddress, acceptedReportFrame(order))
}

func (s *Server) ReportError(clientAddress string, err error) error {
	return s.writeToClient(clientAddress, errorReportFrame(err))
}

func (s *Server) writeToClient(clientAddress string, frame []byte) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	client, ok := s.clientSessions[clientAddress]
	if !ok {
		return ErrClientDoesNotExist
	}

	if _, err := client.conn.Write(frame); err != nil {
		delete(s.clientSessions, clientAddress)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

// sessionHandler reads off incoming messages from clients and handles
// high-level session logic. Messages are received from the pool of workers.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case message := <-s.clientMessages:
			if err := s.handleMessage(message); err != nil {
				log.Error().
					Err(err).
					Str("clientAddress", message.clientAddress).
					Msg("error handling message")
				// Log the error back to the client.
				s.ReportError(message.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleMessage(message ClientMessage) error {
	switch msg := message.message.(type) {
	case NewOrderMessage:
		order := msg.Order()
		s.registerOwner(order.Owner, message.clientAddress)

		if err := s.engine.PlaceOrder(msg.AssetType, order); err != nil {
			return err
		}
		// Hand the exchange-assigned uuid back so the owner can cancel.
		return s.reportAccepted(message.clientAddress, order)
	case CancelOrderMessage:
		return s.engine.CancelOrder(msg.AssetType, msg.OrderUUID)
	case QuoteMarketMessage:
		filled, cost, err := s.engine.QuoteMarketCost(msg.AssetType, msg.Side, msg.Quantity)
		if err != nil {
			return err
		}
		return s.reportQuote(message.clientAddress, msg.AssetType, filled, cost)
	case BaseMessage:
		if msg.GetType() == LogBook {
			s.engine.LogBook()
			return nil
		}
		return ErrInvalidMessageType
	default:
		log.Error().
			Int("messageType", int(message.message.GetType())).
			Str("clientAddress", message.clientAddress).
			Msg("invalid message type")
		return ErrInvalidMessageType
	}
}

// handleConnection is a short-lived worker method which reads the next
// message off the connection, parses and passes it forward to
// sessionHandler. If the connection dies, the client session is cleaned up.
// Note, any error returned from here is fatal to the pool.
func (s *Server) handleConnection(t *tomb.Tomb, conn net.Conn) error {
	clientAddress := conn.RemoteAddr().String()

	// Idle clients are dropped after the read deadline passes.
	if err := conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Str("address", clientAddress).
			Err(err).
			Msg("failed setting deadline for connection")
		return nil
	}

	buffer := make([]byte, MAX_RECV_SIZE)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			log.Error().
				Err(err).
				Str("address", clientAddress).
				Msg("error reading from connection")

			// If a read from a client fails, it is likely that the
			// client has exited. Clean up the client session.
			s.deleteClientSession(clientAddress)
			conn.Close()
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("address", clientAddress).
				Msg("error parsing message")
			s.ReportError(clientAddress, err)
		} else {
			// Pass over to the message handling buffer.
			s.clientMessages <- ClientMessage{
				message:       message,
				clientAddress: clientAddress,
			}
		}

		// Push the client connection back to handle the next message.
		s.pool.AddTask(conn)
	}
	return nil
}

// addClientSession is an atomic map add.
func (s *Server) addClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	s.clientSessions[conn.RemoteAddr().String()] = ClientSession{
		conn: conn,
	}
}

// registerOwner points an owner's fill reports at their latest session.
func (s *Server) registerOwner(owner, clientAddress string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	s.ownerAddresses[owner] = clientAddress
}

// deleteClientSession is an atomic map remove.
func (s *Server) deleteClientSession(address string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	delete(s.clientSessions, address)
}
