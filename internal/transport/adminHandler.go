package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcp-events/ticketflow/internal/service"
)

type AdminHandler struct {
	adminService service.AdminService
	jobService   service.JobService
}

func NewAdminHandler(adminService service.AdminService, jobService service.JobService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		jobService:   jobService,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.adminService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *AdminHandler) GetPurchases(c *gin.Context) {
	purchases, err := h.adminService.GetPurchases(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchases)
}

func (h *AdminHandler) GetEventTickets(c *gin.Context) {
	tickets, err := h.adminService.GetEventTickets(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (h *AdminHandler) CheckInTicket(c *gin.Context) {
	ticket, err := h.adminService.CheckInTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *AdminHandler) GetMembers(c *gin.Context) {
	members, err := h.adminService.GetMembers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *AdminHandler) CreateMember(c *gin.Context) {
	var req service.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.adminService.CreateMember(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

type broadcastRequest struct {
	Message string `json:"message" binding:"required,min=1,max=4000"`
}

// StartBroadcast launches a notify-all job for the event's ticket holders.
func (h *AdminHandler) StartBroadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobService.StartBroadcast(c.Request.Context(), &service.StartBroadcastRequest{
		EventID: c.Param("id"),
		Message: req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (h *AdminHandler) GetJob(c *gin.Context) {
	job, err := h.jobService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *AdminHandler) CancelJob(c *gin.Context) {
	if err := h.jobService.CancelJob(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
