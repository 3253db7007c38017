package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"realestate/internal/listing"
)

// listingForm 是房源表单的绑定目标。数字字段按字符串绑定，
// 无法解析的值交给校验器报字段错误，而不是整体绑定失败。
type listingForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Category    string `form:"category"`
	Price       string `form:"price"`
	Rooms       string `form:"rooms"`
	Parking     string `form:"parking"`
	Bathrooms   string `form:"bathrooms"`
	Street      string `form:"street"`
	Lat         string `form:"lat"`
	Lng         string `form:"lng"`
}

func (f listingForm) fields() listing.Fields {
	return listing.Fields{
		Title:       f.Title,
		Description: f.Description,
		CategoryID:  formUint(f.Category),
		PriceID:     formUint(f.Price),
		Rooms:       formInt(f.Rooms),
		Parking:     formInt(f.Parking),
		Bathrooms:   formInt(f.Bathrooms),
		Street:      f.Street,
		Lat:         f.Lat,
		Lng:         f.Lng,
	}
}

func bindListingFields(c *gin.Context) (listing.Fields, error) {
	var form listingForm
	if err := c.ShouldBind(&form); err != nil {
		return listing.Fields{}, err
	}
	return form.fields(), nil
}

// formUint 解析失败时返回 0，由 required 规则拦下。
func formUint(raw string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0
	}
	return uint(n)
}

// formInt 解析失败时返回 -1，落在所有数量字段的允许范围之外。
func formInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return -1
	}
	return n
}

// paramID 解析路由参数 :id。
func paramID(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
