package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/deliverysystem/dts/internal/domain"
)

// Server — REST-слой сервиса доставки. Принимает заказы и отдаёт
// текущий статус и историю переходов.
type Server struct {
	orders  domain.OrderRepository
	history domain.HistoryRepository
	uow     domain.UnitOfWork
	logger  *log.Entry
}

// NewServer создаёт HTTP-слой поверх доменных портов.
func NewServer(orders domain.OrderRepository, history domain.HistoryRepository, uow domain.UnitOfWork) *Server {
	return &Server{
		orders:  orders,
		history: history,
		uow:     uow,
		logger:  log.WithField("component", "http-api"),
	}
}

// Router собирает gin-маршруты сервера.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())

	api := engine.Group("/api")
	{
		api.POST("/orders", s.createOrder)
		api.GET("/orders/:id/status", s.getOrderStatus)
		api.GET("/orders/:id/history", s.getOrderHistory)
	}

	return engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("http request handled")
	}
}

type createOrderRequest struct {
	CustomerName string `json:"customerName" binding:"required"`
}

type createOrderResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// createOrder принимает заказ: вставляет Order, первую запись истории и
// событие OrderReceived в outbox одной транзакцией и отвечает 202 —
// обработка продолжится асинхронно через брокер.
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customerName is required"})
		return
	}

	now := time.Now().UTC()
	order, err := domain.NewOrder(req.CustomerName, now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	history := domain.HistoryEvent{
		OrderID:   order.ID,
		Status:    order.Status,
		Timestamp: now,
	}
	outbox, err := domain.NewOutboxEvent(domain.NewOrderReceivedEvent(order.ID, order.CustomerName, now), now)
	if err != nil {
		s.logger.WithError(err).Error("failed to build outbox record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if err := s.uow.CreateOrder(order, history, outbox); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to create order")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"customer": order.CustomerName,
	}).Info("order accepted")

	c.JSON(http.StatusAccepted, createOrderResponse{
		OrderID: order.ID,
		Status:  string(order.Status),
	})
}

type orderStatusResponse struct {
	OrderID       string    `json:"orderId"`
	CustomerName  string    `json:"customerName"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

func (s *Server) getOrderStatus(c *gin.Context) {
	order, err := s.orders.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		s.logger.WithError(err).Error("failed to load order")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, orderStatusResponse{
		OrderID:       order.ID,
		CustomerName:  order.CustomerName,
		Status:        string(order.Status),
		CreatedAt:     order.CreatedAt,
		LastUpdatedAt: order.LastUpdatedAt,
	})
}

type historyEntryResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type orderHistoryResponse struct {
	OrderID string                 `json:"orderId"`
	History []historyEntryResponse `json:"history"`
}

// getOrderHistory возвращает timeline заказа: все достигнутые статусы в
// порядке переходов.
func (s *Server) getOrderHistory(c *gin.Context) {
	orderID := c.Param("id")

	if _, err := s.orders.Get(orderID); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		s.logger.WithError(err).Error("failed to load order")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	events, err := s.history.List(orderID)
	if err != nil {
		s.logger.WithError(err).Error("failed to load order history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	entries := make([]historyEntryResponse, 0, len(events))
	for _, event := range events {
		entries = append(entries, historyEntryResponse{
			Status:    string(event.Status),
			Timestamp: event.Timestamp,
		})
	}

	c.JSON(http.StatusOK, orderHistoryResponse{
		OrderID: orderID,
		History: entries,
	})
}
